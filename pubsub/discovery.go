package pubsub

import (
	"sync"

	"go.uber.org/zap"
)

// Listener 接收对端发现/撤销事件（规格 §4.D）。
type Listener interface {
	EndpointAdded(ep Endpoint)
	EndpointRemoved(ep Endpoint)
}

// discoveredEntry 是一个已发现的对端端点，以其完整 KV key 为身份。
type discoveredEntry struct {
	endpoint Endpoint
	key      string
}

// discoveryRegistry 维护当前已发现的对端端点集合，并向已注册的 Listener 广播变化
// （规格 §4.D）。
//
// 锁顺序（规格 §5）：discovery 锁先于 listener 相关操作获取，绝不反转；
// Listener 回调本身不持有任何锁时调用，避免回调重入导致死锁。
type discoveryRegistry struct {
	mu            sync.Mutex
	discovered    map[string]*discoveredEntry // key -> entry
	listeners     []Listener
	frameworkUUID string
	log           *zap.Logger
}

func newDiscoveryRegistry(frameworkUUID string, log *zap.Logger) *discoveryRegistry {
	return &discoveryRegistry{
		discovered:    make(map[string]*discoveredEntry),
		frameworkUUID: frameworkUUID,
		log:           log,
	}
}

// ingest 处理一次 Create/Set/Update 事件。自我抑制（同一 frameworkUUID 的公告不回放
// 给自己）使用精确字符串相等比较（规格不变式 I2 的修正，见 SPEC_FULL.md）。
//
// 规格 §4.D：不论新值是否等于旧值，已存储的值都被无条件替换；只有 key 此前*不*
// present 时才向 listener 扇出 EndpointAdded——已经 present 的 key 视为幂等刷新，
// 即便属性值发生了变化也不重复通知。
func (r *discoveryRegistry) ingest(key string, ep Endpoint) {
	if ep.FrameworkUUID() != "" && ep.FrameworkUUID() == r.frameworkUUID {
		return
	}

	r.mu.Lock()
	_, alreadyPresent := r.discovered[key]
	r.discovered[key] = &discoveredEntry{endpoint: ep.Clone(), key: key}
	if alreadyPresent {
		r.mu.Unlock()
		return
	}
	listenersSnapshot := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listenersSnapshot {
		l.EndpointAdded(ep)
	}
}

// retract 处理一次 Delete/Expire 事件。若 key 此前未被记录，记一条告警日志并返回
// （对端已经消失过一次，或者从未被本进程观察到）。
func (r *discoveryRegistry) retract(key string) {
	r.mu.Lock()
	entry, ok := r.discovered[key]
	if !ok {
		r.mu.Unlock()
		if r.log != nil {
			r.log.Warn("retract for unknown key", zap.String("key", key))
		}
		return
	}
	delete(r.discovered, key)
	listenersSnapshot := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listenersSnapshot {
		l.EndpointRemoved(entry.endpoint)
	}
}

// attachListener 注册一个 listener 并立即为其补发所有已发现的端点（catch-up replay）。
//
// 追加到 listeners 与拍摄 snapshot 在同一次加锁内完成，因此任何在此之后发生的 ingest
// 都会单独通知到该 listener，不会与 replay 的内容重复或遗漏。
func (r *discoveryRegistry) attachListener(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	snapshot := make([]Endpoint, 0, len(r.discovered))
	for _, e := range r.discovered {
		snapshot = append(snapshot, e.endpoint)
	}
	r.mu.Unlock()

	for _, ep := range snapshot {
		l.EndpointAdded(ep)
	}
}

// detachListener 移除一个此前注册的 listener。
func (r *discoveryRegistry) detachListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// purgeAll 在连接丢失时清空全部已发现端点，并向 listener 逐一广播移除
// （规格 §4.E：watch 连接丢失视为对端全部不可达）。
func (r *discoveryRegistry) purgeAll() {
	r.mu.Lock()
	entries := make([]*discoveredEntry, 0, len(r.discovered))
	for _, e := range r.discovered {
		entries = append(entries, e)
	}
	r.discovered = make(map[string]*discoveredEntry)
	listenersSnapshot := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, e := range entries {
		for _, l := range listenersSnapshot {
			l.EndpointRemoved(e.endpoint)
		}
	}
}

func endpointEqual(a, b Endpoint) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
