package types

import "time"

// SessionInfo identifies one connection for lifecycle callbacks.
type SessionInfo struct {
	ID        string    `json:"id"`
	Remote    string    `json:"remote"`
	StartedAt time.Time `json:"startedAt"`
}

// SessionStatus is the live view of a session exposed by the status API.
type SessionStatus struct {
	SessionInfo
	State    string `json:"state"`
	Expected int    `json:"expected"`
	Received int    `json:"received"`
	Groups   int    `json:"groups"` // completed groups on this connection
}

// HandlerInterface receives session lifecycle events. OnGroupReady is the
// completion handler: it runs synchronously and its error never aborts the session.
type HandlerInterface interface {
	OnSessionStart(info SessionInfo)
	OnGroupBegin(info SessionInfo, expected int)
	OnObjectStaged(info SessionInfo, index int, slot Slot)
	OnGroupReady(info SessionInfo, group Group) error
	OnGroupCancel(info SessionInfo, staged int)
	OnSessionEnd(info SessionInfo, err error)
}
