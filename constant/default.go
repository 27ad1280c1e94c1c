// Package constant 定义发现引擎使用的默认值与键名常量。
package constant

const (
	// DefaultServerIP 默认 KV 服务地址。
	DefaultServerIP = "127.0.0.1"
	// DefaultServerPort 默认 KV 服务端口（etcd v2 默认端口）。
	DefaultServerPort = 2379
	// DefaultServerPath 默认根路径前缀。
	DefaultServerPath = "pubsub"
	// DefaultTTL 默认心跳/租约 TTL（秒）。
	DefaultTTL = 30
	// DefaultMaxRetry 默认重连/重试上限（0 表示不限）。
	DefaultMaxRetry = 0
	// DefaultVerbose 默认关闭详细日志。
	DefaultVerbose = false
	// DefaultReconnectBackoff watch 循环断线后的退避时长。
	DefaultReconnectBackoff = 5
)
