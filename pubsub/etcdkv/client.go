// Package etcdkv 在 go.etcd.io/etcd/client/v3 之上实现 pubsub.Client，
// 把 etcd v3 的 revision/lease 模型适配成规格 §4.B 描述的 etcd v2 风格契约：
// 单调递增的索引、Get 目录列举、索引驱动的 watch、TTL 驱动的 set/refresh/delete。
package etcdkv

import (
	"context"
	"errors"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/fireflycore/pubsub-discovery/pubsub"
)

// Client 把一个已连接的 etcd v3 客户端包装成 pubsub.Client。
//
// 写操作（Set/Refresh/Delete）各自管理自己的 lease：每个 key 绑定一个独立的 lease，
// 这样单个端点的 TTL 与其他端点互不影响，贴近规格里"每个端点独立续约"的语义
// （与教师 registry/etcd/register.go 里整个注册实例共享一个 lease 的做法不同——
// pub/sub 场景里同一进程可能同时公告多个端点，且各自的生命周期应当独立）。
type Client struct {
	cli *clientv3.Client
}

// New 包装一个已建好连接的 etcd v3 客户端。
func New(cli *clientv3.Client) (*Client, error) {
	if cli == nil {
		return nil, errors.New("etcd client is nil")
	}
	return &Client{cli: cli}, nil
}

// GetDirectory 实现 pubsub.Client：一次 Get(WithPrefix) 枚举全部叶子节点，
// 返回 Header.Revision+1 作为后续 Watch 的起点，使 watch 不会重放列举结果里
// 已经包含的变更（规格 §4.B；做法与 registry/etcd/discover.go 的 bootstrap() 一致）。
func (c *Client) GetDirectory(ctx context.Context, path string, visit func(key, value string)) (int64, error) {
	res, err := c.cli.Get(ctx, path, clientv3.WithPrefix())
	if err != nil {
		return 0, pubsubKVError(err)
	}

	for _, kv := range res.Kvs {
		visit(string(kv.Key), string(kv.Value))
	}

	var rev int64
	if res.Header != nil {
		rev = res.Header.Revision + 1
	}
	return rev, nil
}

// Watch 实现 pubsub.Client，从 fromIndex 开始订阅 path 前缀下的变更。
func (c *Client) Watch(ctx context.Context, path string, fromIndex int64) (pubsub.WatchStream, error) {
	opts := []clientv3.OpOption{clientv3.WithPrefix(), clientv3.WithPrevKV()}
	if fromIndex > 0 {
		opts = append(opts, clientv3.WithRev(fromIndex))
	}
	watchCtx, cancel := context.WithCancel(ctx)
	wc := c.cli.Watch(watchCtx, path, opts...)
	return &watchStream{ch: wc, cancel: cancel, pending: nil}, nil
}

// Set 实现 pubsub.Client。prevExist=false 时用一个全新的 lease 直接写入；
// etcd v3 没有原生的"仅当不存在时写入"原语，这里用事务的 CreateRevision=0 判据实现。
func (c *Client) Set(ctx context.Context, key, value string, ttlSeconds uint32, prevExist bool) error {
	lease, err := c.cli.Grant(ctx, int64(ttlSeconds))
	if err != nil {
		return pubsubKVError(err)
	}

	put := clientv3.OpPut(key, value, clientv3.WithLease(lease.ID))
	if !prevExist {
		txn := c.cli.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(put)
		resp, txnErr := txn.Commit()
		if txnErr != nil {
			return pubsubKVError(txnErr)
		}
		if !resp.Succeeded {
			return pubsub.NewKVError(pubsub.ErrKVFatal, fmt.Sprintf("key %q already exists", key), nil)
		}
		return nil
	}

	_, err = c.cli.Put(ctx, key, value, clientv3.WithLease(lease.ID))
	return pubsubKVError(err)
}

// Refresh 实现 pubsub.Client：对 key 当前持有的 lease 做一次 KeepAliveOnce。
// etcd v3 的 lease 与 key 绑定是创建时一次性确定的，这里先读出当前 key 的 lease，
// 再续约；若 key 或其 lease 已经不存在，返回错误让调用方走 Set 重新 publish。
func (c *Client) Refresh(ctx context.Context, key string, ttlSeconds uint32) error {
	res, err := c.cli.Get(ctx, key)
	if err != nil {
		return pubsubKVError(err)
	}
	if len(res.Kvs) == 0 {
		return pubsub.NewKVError(pubsub.ErrKVTransient, fmt.Sprintf("key %q not found", key), nil)
	}
	leaseID := clientv3.LeaseID(res.Kvs[0].Lease)
	if leaseID == 0 {
		return pubsub.NewKVError(pubsub.ErrKVFatal, fmt.Sprintf("key %q has no lease", key), nil)
	}
	_, err = c.cli.KeepAliveOnce(ctx, leaseID)
	return pubsubKVError(err)
}

// Delete 实现 pubsub.Client。
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.cli.Delete(ctx, key)
	return pubsubKVError(err)
}

func pubsubKVError(err error) error {
	if err == nil {
		return nil
	}
	return pubsub.NewKVError(pubsub.ErrKVTransient, "etcd operation failed", err)
}

type watchStream struct {
	ch      clientv3.WatchChan
	cancel  context.CancelFunc
	pending []*clientv3.Event
}

// Next 实现 pubsub.WatchStream。etcd v3 把多个事件打包进一次 WatchResponse，
// 这里把它们摊平成逐条事件返回，pending 缓冲同一响应里剩余的事件。
//
// etcd v3 的租约过期会产生一次普通的 Delete 事件，没有独立的"过期"标记，
// 因此这里统一映射为 pubsub.ActionDelete（规格允许 Delete 与 Expire 在调用方被
// 同等处理，详见 DESIGN.md 对该差异的说明）。
func (w *watchStream) Next(ctx context.Context) (*pubsub.WatchEvent, error) {
	for {
		if len(w.pending) > 0 {
			e := w.pending[0]
			w.pending = w.pending[1:]
			return toWatchEvent(e), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case resp, ok := <-w.ch:
			if !ok {
				return nil, errors.New("etcd watch channel closed")
			}
			if resp.Canceled {
				if resp.CompactRevision > 0 {
					return nil, fmt.Errorf("etcd watch compacted to revision %d: %w", resp.CompactRevision, resp.Err())
				}
				return nil, fmt.Errorf("etcd watch canceled: %w", resp.Err())
			}
			if len(resp.Events) == 0 {
				// 进度心跳，没有实际变更：对调用方呈现为 Timeout。
				return nil, nil
			}
			w.pending = resp.Events
		}
	}
}

func (w *watchStream) Close() {
	w.cancel()
}

func toWatchEvent(e *clientv3.Event) *pubsub.WatchEvent {
	var key, value []byte
	action := pubsub.ActionOther

	switch e.Type {
	case clientv3.EventTypeDelete:
		action = pubsub.ActionDelete
		if e.PrevKv != nil {
			key = e.PrevKv.Key
		} else if e.Kv != nil {
			key = e.Kv.Key
		}
	default:
		if e.Kv != nil {
			key = e.Kv.Key
			value = e.Kv.Value
		}
		if e.IsCreate() {
			action = pubsub.ActionCreate
		} else {
			action = pubsub.ActionUpdate
		}
	}

	return &pubsub.WatchEvent{
		Action: action,
		Key:    string(key),
		Value:  value,
	}
}
