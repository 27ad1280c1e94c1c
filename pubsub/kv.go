package pubsub

import "context"

// Action 枚举 KV 变更动作（规格 §4.B）。
type Action int

const (
	ActionCreate Action = iota
	ActionSet
	ActionUpdate
	ActionDelete
	ActionExpire
	ActionGet
	ActionOther
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "Create"
	case ActionSet:
		return "Set"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	case ActionExpire:
		return "Expire"
	case ActionGet:
		return "Get"
	default:
		return "Other"
	}
}

// WatchEvent 是 watch 流产出的单条变更（规格 §4.B watch 操作的返回值）。
type WatchEvent struct {
	Action Action
	Key    string
	Value  []byte
	// Index 是该事件对应的 KV 修订号；后端不提供时为 0（etcdkv 不填写）。
	// watchLoop 不读取它：同一 watch 会话内由 WatchStream 自己推进位置，
	// 重连后由 GetDirectory 重新给出起点。
	Index int64
}

// WatchStream 是单次 watch 调用产生的变更流。
//
// Next 的约定直接对应规格 §4.B 的三种状态：
//   - (event, nil): 收到一次变更（Status OK）。
//   - (nil, nil): 本轮没有变更（Status Timeout）；调用方应直接再次调用 Next。
//   - (nil, err): 连接已不可用（Status Error）；调用方必须 Close 并视连接为丢失。
type WatchStream interface {
	Next(ctx context.Context) (*WatchEvent, error)
	Close()
}

// Client 是规格 §4.B 描述的 KV 适配器契约：etcd v2 风格的目录读取 + 索引驱动 watch +
// TTL 读写。任何满足该契约、具备单调 modifiedIndex 语义与 TTL 过期动作的存储都可以实现它
// （规格 §6："etcd v2-style HTTP API, or any store exposing the five adapter operations"）。
//
// 实现必须允许并发调用：watch 循环只调用 Watch/GetDirectory，refresh 循环调用
// Set/Refresh，Engine 的 RemoveEndpoint/Stop 从调用方 goroutine 调用 Delete。
type Client interface {
	// GetDirectory 枚举 path 下的全部叶子节点，对每个叶子调用 visit(key, value)。
	// 返回值为调用时刻的存储全局修订号，用作后续 watch 的起点。
	GetDirectory(ctx context.Context, path string, visit func(key, value string)) (index int64, err error)

	// Watch 从 fromIndex 开始订阅 path 前缀下的变更。
	Watch(ctx context.Context, path string, fromIndex int64) (WatchStream, error)

	// Set 写入 key，ttlSeconds 为租约时长；prevExist=false 时要求 key 此前不存在
	// （用于 §4.F 对"已丢失条目"的重新 set，冲突会返回错误而不是静默覆盖）。
	Set(ctx context.Context, key, value string, ttlSeconds uint32, prevExist bool) error

	// Refresh 续约 key 的 TTL 而不修改其值或修订号，使对端的 watch 不会被心跳触发。
	Refresh(ctx context.Context, key string, ttlSeconds uint32) error

	// Delete 删除 key。
	Delete(ctx context.Context, key string) error
}
