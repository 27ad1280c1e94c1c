package pubsub

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// refreshLoop 实现规格 §4.F：每隔 ttl/2 遍历本进程公告过的全部端点一次，
// present 的条目续约 TTL，尚未 present 的条目（新 announce，或上一轮续约失败）
// 用 prevExist=false 重新 set。续约失败只翻转 present=false，留给下一轮重新 set，
// 不在同一轮内立即重试。
//
// 等待使用 time.Timer（单调时钟），可被 wake（有新的 announce）或 stop 提前打断。
type refreshLoop struct {
	client   Client
	registry *announcementRegistry
	log      *zap.Logger
	ttl      uint32

	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

func newRefreshLoop(client Client, registry *announcementRegistry, log *zap.Logger, ttl uint32) *refreshLoop {
	return &refreshLoop{
		client:   client,
		registry: registry,
		log:      log,
		ttl:      ttl,
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (r *refreshLoop) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := time.Duration(r.ttl/2) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	for {
		if !r.wait(interval) {
			return
		}
		r.refreshAll(ctx)
	}
}

// wait 阻塞到 interval 流逝，或被 wake/stop 提前打断；返回 false 表示应当退出循环。
func (r *refreshLoop) wait(interval time.Duration) bool {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-r.stopCh:
		return false
	case <-r.wakeCh:
		return true
	case <-timer.C:
		return true
	}
}

// refreshAll implements 规格 §4.F step 2's present/!present branch for every
// registered entry: present entries get a TTL refresh (which never bumps the
// KV revision, so peers' watches stay quiet); entries that are not yet
// present (brand new, or dropped by a previous failed refresh) get the
// initial set with prevExist=false. Either branch only flips `present` on its
// own pass — a failed set is left for the *next* pass to retry, exactly as
// §7 specifies for KVTransient in the Refresh Loop.
func (r *refreshLoop) refreshAll(ctx context.Context) {
	for _, entry := range r.registry.snapshot() {
		uuid := entry.endpoint.UUID()
		if entry.present {
			if err := r.client.Refresh(ctx, entry.key, r.ttl); err != nil {
				if r.log != nil {
					r.log.Warn("refresh failed, will re-set next pass", zap.String("key", entry.key), zap.Error(err))
				}
				r.registry.setPresent(uuid, false)
			}
			continue
		}

		data, encodeErr := Encode(entry.endpoint)
		if encodeErr != nil {
			if r.log != nil {
				r.log.Error("failed to encode endpoint for set", zap.String("key", entry.key), zap.Error(encodeErr))
			}
			continue
		}
		if setErr := r.client.Set(ctx, entry.key, string(data), r.ttl, false); setErr != nil {
			if r.log != nil {
				r.log.Error("failed to set announced entry", zap.String("key", entry.key), zap.Error(setErr))
			}
			continue
		}
		r.registry.setPresent(uuid, true)
	}
}

// wake 请求立即执行下一轮续约（例如新增了一个 announce），不阻塞调用方。
func (r *refreshLoop) wake() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

func (r *refreshLoop) stop() {
	close(r.stopCh)
	<-r.doneCh
}
