package constant

// 端点属性的固定键名，与 KV 值中 JSON 字段名一一对应。
const (
	PropUUID          = "uuid"
	PropFrameworkUUID = "framework.uuid"
	PropAdminType     = "admin.type"
	PropSerializer    = "serializer.type"
	PropTopicScope    = "topic.scope"
	PropTopicName     = "topic.name"
	PropType          = "type"
)

// 端点的方向取值。
const (
	TypePublisher  = "publisher"
	TypeSubscriber = "subscriber"
)

// RequiredProps 是一个有效端点必须具备的属性集合。
var RequiredProps = []string{
	PropUUID,
	PropFrameworkUUID,
	PropAdminType,
	PropSerializer,
	PropTopicScope,
	PropTopicName,
	PropType,
}
