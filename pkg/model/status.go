package model

import "time"

// LifecycleStatus is the lifecycle state of a map instance.
type LifecycleStatus string

const (
	StatusInitializing LifecycleStatus = "initializing"
	StatusLoaded       LifecycleStatus = "loaded"
	StatusErrored      LifecycleStatus = "errored"
)

// Terminal reports whether no further transition is expected for the current map instance.
func (s LifecycleStatus) Terminal() bool {
	return s == StatusLoaded || s == StatusErrored
}

// NoticeLevel selects the user-facing notification channel.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a single user-facing notification.
type Notice struct {
	ID      string      `json:"id,omitempty"`
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time,omitempty"`
}
