package constants

import "time"

const (
	CHANNEL_SIZE         = 100 // 通道大小
	CONVERSATION_ID_LEN  = 11  // 会话/关系随机 ID 长度
	DELIVERY_WORKERS     = 8
	DELIVERY_JOB_TIMEOUT = 10 * time.Second
	WS_WRITE_WAIT        = 10 * time.Second
	WS_PONG_WAIT         = 60 * time.Second
	WS_PING_PERIOD       = (WS_PONG_WAIT * 9) / 10
	WS_MAX_MESSAGE_SIZE  = 64 * 1024
	SEEN_MAX_MESSAGE_IDS = 500
	FORWARD_MAX_TARGETS  = 50
	ACCESS_TOKEN_SUBJECT = "access_token"
)

// 频道组与缓存键
const (
	GROUP_CHAT_PREFIX         = "chat:"
	GROUP_NOTIFICATION_PREFIX = "notification:"
	GROUP_ACTIVITY            = "activity"
	PRESENCE_ONLINE_SET_KEY   = "presence:online"
	PRESENCE_LAST_SEEN_PREFIX = "presence:last_seen:"
)

// ID 前缀
const (
	CONVERSATION_ID_PREFIX = "C"
	RELATIONSHIP_ID_PREFIX = "R"
)
