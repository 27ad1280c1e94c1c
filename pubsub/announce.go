package pubsub

import "sync"

// announcedEntry 是本进程已对外公告的一个端点（规格 §3、§4.C）。present 为 true
// 当且仅当本进程相信该条目此刻确实存在于 KV store 中；新建条目总是从
// present=false 开始，由 refresh 循环在第一次成功 set 之后翻转。
type announcedEntry struct {
	endpoint Endpoint
	key      string
	present  bool
}

// announcementRegistry 记录本进程自己announce的端点，供 refresh 循环逐个续约。
//
// 并发规则（规格 §5）：registry 自身的锁只保护 map 访问；任何网络调用
// （Set/Refresh/Delete）都必须在释放锁之后进行。
type announcementRegistry struct {
	mu      sync.Mutex
	entries map[string]*announcedEntry // uuid -> entry
}

func newAnnouncementRegistry() *announcementRegistry {
	return &announcementRegistry{entries: make(map[string]*announcedEntry)}
}

// putIfAbsent 登记一个端点；若该 uuid 已登记则返回 false（调用方应视为重复 announce）。
// 新条目的 present 总是从 false 开始（规格 §3）：真正的 KV set 是 refresh 循环的职责。
func (r *announcementRegistry) putIfAbsent(ep Endpoint, key string) bool {
	uuid := ep.UUID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[uuid]; exists {
		return false
	}
	r.entries[uuid] = &announcedEntry{endpoint: ep.Clone(), key: key, present: false}
	return true
}

// remove 撤销一个 uuid 的登记，返回其 key 以及撤销前它是否 present
// （调用方据此决定是否还需要对 KV 发起 Delete）。
func (r *announcementRegistry) remove(uuid string) (key string, present bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[uuid]
	if !ok {
		return "", false, false
	}
	delete(r.entries, uuid)
	return entry.key, entry.present, true
}

// setPresent 翻转一个登记项的 present 标志（规格 §4.F）。condition variable 之外的
// 并发写入都必须经过这里，以免 refresh 循环与 announce/remove 竞争同一个 bool 字段。
func (r *announcementRegistry) setPresent(uuid string, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[uuid]; ok {
		e.present = present
	}
}

// snapshot 返回当前全部登记项的值拷贝切片，用于 refresh 循环遍历，
// 遍历期间不持有锁，避免网络调用阻塞其他 registry 操作。拷贝而非指针，
// 防止调用方在锁外直接修改 present 字段。
func (r *announcementRegistry) snapshot() []announcedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]announcedEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// len 返回当前登记项数量。
func (r *announcementRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
