package pubsub

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fireflycore/pubsub-discovery/conf"
	"github.com/fireflycore/pubsub-discovery/constant"
	"github.com/fireflycore/pubsub-discovery/sys"
)

type engineState int

const (
	engineCreated engineState = iota
	engineStarted
	engineStopped
	engineDestroyed
)

// Engine 是规格 §4.G 的门面：把 KV Client Adapter、Announcement Registry、
// Discovery Registry、Watch Loop 与 Refresh Loop 组装成一个可 create/start/stop/destroy
// 的单元。
type Engine struct {
	conf   *conf.Conf
	log    *zap.Logger
	client Client

	announcements *announcementRegistry
	discovery     *discoveryRegistry
	watch         *watchLoop
	refresh       *refreshLoop

	mu     sync.Mutex
	state  engineState
	cancel context.CancelFunc
}

// Create 构造一个处于 created 状态的 Engine（规格 §4.G "create"）。client 由调用方
// 注入，使同一份引擎逻辑可以跑在 etcd 或 Consul 后端之上（规格 §6）。
func Create(cfg *conf.Conf, client Client, log *zap.Logger) *Engine {
	if cfg == nil {
		cfg = &conf.Conf{}
	}
	cfg.Bootstrap()
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.Verbose {
		if info, err := sys.GetHostInfo(); err == nil {
			log.Info("discovery engine starting up",
				zap.String("hostname", info.Hostname),
				zap.String("os", info.OS),
				zap.String("arch", info.Arch),
				zap.Int("cpu_cores", info.CPUCores),
			)
		} else {
			log.Warn("failed to collect host diagnostics", zap.Error(err))
		}
	}

	announcements := newAnnouncementRegistry()
	discovery := newDiscoveryRegistry(cfg.FrameworkUUID, log)

	rootPath := cfg.ServerPath
	backoff := time.Duration(constant.DefaultReconnectBackoff) * time.Second

	return &Engine{
		conf:          cfg,
		log:           log,
		client:        client,
		announcements: announcements,
		discovery:     discovery,
		watch:         newWatchLoop(client, rootPath, discovery, log, backoff, cfg.MaxRetry),
		refresh:       newRefreshLoop(client, announcements, log, cfg.TTL),
		state:         engineCreated,
	}
}

// Start 启动 Watch Loop 与 Refresh Loop（规格 §4.G "start"）。重复调用是安全的
// no-op（已经是 started 状态时直接返回 nil）。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case engineStarted:
		return nil
	case engineDestroyed:
		return newError(ErrKVFatal, "engine already destroyed", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state = engineStarted

	go e.watch.run(runCtx)
	go e.refresh.run(runCtx)

	return nil
}

// Stop 请求两个循环退出并阻塞直到它们都返回，然后完成规格 §4.G/不变式 I3 要求的
// 收尾：把 Discovery Registry 中剩余的每个对端条目都广播一次移除，并把
// Announcement Registry 中每个 present 的条目从 KV store 中删除。幂等：对一个
// 未启动或已停止的引擎调用是安全的。
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != engineStarted {
		return nil
	}

	if e.cancel != nil {
		e.cancel()
	}
	e.watch.stop()
	e.refresh.stop()

	e.discovery.purgeAll()

	ctx := context.Background()
	for _, entry := range e.announcements.snapshot() {
		if !entry.present {
			continue
		}
		if err := e.client.Delete(ctx, entry.key); err != nil {
			if e.log != nil {
				e.log.Warn("failed to delete announced entry on stop", zap.String("key", entry.key), zap.Error(err))
			}
		}
	}

	e.state = engineStopped
	return nil
}

// Destroy 释放引擎持有的资源。调用方必须先 Stop（若引擎仍在运行，Destroy 会先
// 帮忙 Stop）。Destroy 之后再调用 Start 会返回 ErrKVFatal；其他方法不检查
// destroyed 状态。
func (e *Engine) Destroy() error {
	if err := e.Stop(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = engineDestroyed
	return nil
}

// AnnounceEndpoint registers a local endpoint (规格 §4.G "announceEndpoint",
// §5): validate, compute its key, putIfAbsent into the Announcement
// Registry, and signal the Refresh Loop to wake. It deliberately does not
// touch the KV store — facade operations never block on the network (§5);
// the first `set` for a newly-announced entry is the Refresh Loop's job
// (§4.F step 2's `!present` branch), so a transient KV error on that first
// write just leaves `present=false` for the next pass to retry instead of
// losing the announcement outright.
func (e *Engine) AnnounceEndpoint(_ context.Context, ep Endpoint) error {
	if err := ep.Validate(); err != nil {
		return err
	}

	key := ep.Key(e.conf.ServerPath)
	if !e.announcements.putIfAbsent(ep, key) {
		return newError(ErrInvalidEndpoint, "endpoint already announced: "+ep.UUID(), nil)
	}

	e.refresh.wake()
	return nil
}

// RemoveEndpoint 撤销一次本地公告（规格 §4.G "removeEndpoint"）：从 Announcement
// Registry 中移除；只有在它确实 present 于 KV 中时才发起 Delete——若它从未被
// refresh 循环成功 set 过，KV 里根本没有这个 key，无需再打一次网络请求。
func (e *Engine) RemoveEndpoint(ctx context.Context, uuid string) error {
	if uuid == "" {
		return newError(ErrMissingUUID, "endpoint has no uuid", nil)
	}
	key, present, ok := e.announcements.remove(uuid)
	if !ok {
		return newError(ErrInvalidEndpoint, "no such announced endpoint: "+uuid, nil)
	}
	if !present {
		return nil
	}
	if err := e.client.Delete(ctx, key); err != nil {
		return newError(ErrKVTransient, "failed to remove endpoint", err)
	}
	return nil
}

// AttachListener 注册一个对端发现事件的订阅者（规格 §4.G "attachListener"）。
func (e *Engine) AttachListener(l Listener) {
	e.discovery.attachListener(l)
}

// DetachListener 取消一个订阅（规格 §4.G "detachListener"）。
func (e *Engine) DetachListener(l Listener) {
	e.discovery.detachListener(l)
}
