// Package conf 定义发现引擎的配置模型与默认值填充。
package conf

import "github.com/fireflycore/pubsub-discovery/constant"

// Conf 对应 discovery.server.* / discovery.etcd.ttl / discovery.verbose 等配置项（规格 §6）。
type Conf struct {
	// ServerIP KV 服务地址（discovery.server.ip）。
	ServerIP string `json:"server_ip"`
	// ServerPort KV 服务端口（discovery.server.port）。
	ServerPort int `json:"server_port"`
	// ServerPath KV 根路径前缀（discovery.server.path）。
	ServerPath string `json:"server_path"`
	// TTL 心跳/租约 TTL 秒数（discovery.etcd.ttl）。
	TTL uint32 `json:"ttl"`
	// Verbose 是否输出详细日志（discovery.verbose）。
	Verbose bool `json:"verbose"`
	// FrameworkUUID 本进程标识（framework.uuid），由宿主框架提供。
	FrameworkUUID string `json:"framework_uuid"`
	// MaxRetry watch 循环重连退避的上限次数，0 表示不限。
	MaxRetry uint32 `json:"max_retry"`
}

// Bootstrap 按规格 §6 的默认值填充未设置的字段。
func (c *Conf) Bootstrap() {
	if c.ServerIP == "" {
		c.ServerIP = constant.DefaultServerIP
	}
	if c.ServerPort == 0 {
		c.ServerPort = constant.DefaultServerPort
	}
	if c.ServerPath == "" {
		c.ServerPath = constant.DefaultServerPath
	}
	if c.TTL == 0 {
		c.TTL = constant.DefaultTTL
	}
}
