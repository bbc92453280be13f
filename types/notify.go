package types

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "group_begin", "group_ready", etc.
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

const (
	NotifyTypeSessionStart = "session_start"
	NotifyTypeGroupBegin   = "group_begin"
	NotifyTypeObjectStaged = "object_staged"
	NotifyTypeGroupReady   = "group_ready"
	NotifyTypeGroupCancel  = "group_cancel"
	NotifyTypeSessionEnd   = "session_end"
	NotifyTypeSnapshot     = "snapshot" // sent once to a new websocket listener
)

// NotifyHub receives every notification for broadcast to live listeners.
type NotifyHub interface {
	Broadcast(notification *Notification)
}
