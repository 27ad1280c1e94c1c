package pubsub

import "encoding/json"

// Encode 实现规格 §4.A：将端点属性表编码为紧凑 JSON 对象，所有值都以字符串形式写出。
//
// map[string]string 本身序列化出来的每个字段值就已经是 JSON 字符串，
// 因此无需额外的逐字段 Stringify 步骤（与教师代码里 json.Marshal(service) 的做法一致，
// 只是这里 service 本身就是一个扁平的字符串映射）。
func Encode(props Endpoint) ([]byte, error) {
	return json.Marshal(map[string]string(props))
}

// Decode 实现规格 §4.A：解析 JSON 对象，拒绝非对象根节点，解码后立即重新校验必填字段。
// 校验失败返回 ErrInvalidEndpoint 且不产出任何 map。
func Decode(data []byte) (Endpoint, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newError(ErrDecodeError, "not a json object", err)
	}

	props := make(Endpoint, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, newError(ErrDecodeError, "field "+k+" is not a json string", err)
		}
		props[k] = s
	}

	if err := props.Validate(); err != nil {
		return nil, err
	}

	return props, nil
}
