package domain

import "time"

// RevalidationEventType 是缓存失效事件的类型标识。
const RevalidationEventType = "revalidate"

// RevalidationEvent 通知展示层 Path 下缓存的数据已过期，需要重新获取。
type RevalidationEvent struct {
	Type string    `json:"type"`
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}
