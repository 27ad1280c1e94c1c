package pubsub

import "github.com/fireflycore/pubsub-discovery/utils"

// EncodeStruct 把调用方定义的强类型端点属性结构体转换为 Endpoint（经由 JSON 往返）。
// 结构体字段需要带 json tag 与 constant.Prop* 键名对齐。
func EncodeStruct[T any](src *T) Endpoint {
	var ep Endpoint
	utils.StructConvert(src, &ep)
	return ep
}

// DecodeStruct 把 Endpoint 转换为调用方定义的强类型结构体。
func DecodeStruct[T any](ep Endpoint, dst *T) {
	utils.StructConvert(&ep, dst)
}
