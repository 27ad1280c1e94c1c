package pubsub

import (
	"fmt"

	"github.com/fireflycore/pubsub-discovery/constant"
)

// Endpoint 是一个发布者或订阅者实例的属性描述（规格 §3）。
//
// 除 constant.RequiredProps 列出的必填字段外，其余字段由具体传输层定义，
// 对引擎不透明，原样存储与转发。
type Endpoint map[string]string

// Clone 返回属性表的浅拷贝，调用方可安全持有而不影响引擎内部状态。
func (e Endpoint) Clone() Endpoint {
	out := make(Endpoint, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// UUID 是 Endpoint[constant.PropUUID] 的便捷访问器。
func (e Endpoint) UUID() string {
	return e[constant.PropUUID]
}

// FrameworkUUID 是 Endpoint[constant.PropFrameworkUUID] 的便捷访问器。
func (e Endpoint) FrameworkUUID() string {
	return e[constant.PropFrameworkUUID]
}

// Key 按规格 §3 拼出该端点在 KV 中的路径：
// {root}/{admin.type}/{topic.scope}/{topic.name}/{uuid}
// 不带前导 "/"，与 watch 循环用作前缀的 root 保持一致。
func (e Endpoint) Key(root string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", root, e[constant.PropAdminType], e[constant.PropTopicScope], e[constant.PropTopicName], e[constant.PropUUID])
}

// Validate 校验必填属性是否全部存在且非空，以及 type 是否为 publisher/subscriber。
func (e Endpoint) Validate() error {
	for _, k := range constant.RequiredProps {
		if v, ok := e[k]; !ok || v == "" {
			return newError(ErrInvalidEndpoint, fmt.Sprintf("missing required property %q", k), nil)
		}
	}
	switch e[constant.PropType] {
	case constant.TypePublisher, constant.TypeSubscriber:
		// ok
	default:
		return newError(ErrInvalidEndpoint, fmt.Sprintf("invalid type %q", e[constant.PropType]), nil)
	}
	return nil
}
