package notify

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// NotifyWriteChunkSize is the chunk size when writing payload to Unix socket (avoid large single write).
const NotifyWriteChunkSize = 32 * 1024 // 32KB

// MaxNotifyFiles is the maximum number of paths included in a group_ready payload.
const MaxNotifyFiles = 20

// UnixSocketTimeout is the timeout for Unix socket operations
var UnixSocketTimeout = 3 * time.Second

// Notifier fans notifications out to a websocket hub and, when a socket path
// is configured, to a local listener on a Unix Domain Socket. A nil Notifier
// drops everything.
type Notifier struct {
	socketPath string
	hub        types.NotifyHub
}

func New(socketPath string, hub types.NotifyHub) *Notifier {
	return &Notifier{socketPath: socketPath, hub: hub}
}

// Send broadcasts n to the hub and delivers it over the socket.
func (n *Notifier) Send(notification *types.Notification) error {
	if n == nil || notification == nil {
		return nil
	}
	if n.hub != nil {
		n.hub.Broadcast(notification)
	}
	if n.socketPath == "" {
		return nil
	}
	return SendNotification(notification, n.socketPath)
}

// SendNotification sends notification via Unix Domain Socket: a 4 byte
// little-endian length followed by the JSON payload.
func SendNotification(notification *types.Notification, socketPath string) error {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return fmt.Errorf("unix socket not found: %s", socketPath)
	}

	payload, err := sonic.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to serialize notification data: %v", err)
	}
	if len(payload) > NotifyWriteChunkSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), NotifyWriteChunkSize)
	}

	conn, err := net.DialTimeout("unix", socketPath, UnixSocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to Unix socket %s: %v", socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close Unix socket connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(UnixSocketTimeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set deadline: %v", err)
	}

	lengthBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBuf, uint32(len(payload)))
	if _, err := conn.Write(lengthBuf); err != nil {
		return fmt.Errorf("failed to write length to Unix socket: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload to Unix socket: %v", err)
	}

	buf := make([]byte, 4096)
	nr, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from Unix socket: %v", err)
	}
	if nr > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:nr], &response); err != nil {
			tool.DefaultLogger.Debugf("Unix socket response (raw): %s", string(buf[:nr]))
		} else if errMsg, ok := response["error"].(string); ok && errMsg != "" {
			return fmt.Errorf("server returned error: %s", errMsg)
		}
	}

	tool.DefaultLogger.Debugf("[UnixSocket] Notification sent: %s - %s", notification.Type, notification.Title)
	return nil
}

func SessionStart(info types.SessionInfo) *types.Notification {
	return &types.Notification{
		Type:    types.NotifyTypeSessionStart,
		Title:   "Scanner Connected",
		Message: fmt.Sprintf("Connection from %s", info.Remote),
		Data:    map[string]any{"sessionId": info.ID, "remote": info.Remote},
	}
}

func GroupBegin(info types.SessionInfo, expected int) *types.Notification {
	return &types.Notification{
		Type:    types.NotifyTypeGroupBegin,
		Title:   "Receiving Group",
		Message: fmt.Sprintf("Copying a group of %d files from %s", expected, info.Remote),
		Data:    map[string]any{"sessionId": info.ID, "expected": expected},
	}
}

func ObjectStaged(info types.SessionInfo, index int, slot types.Slot) *types.Notification {
	return &types.Notification{
		Type:  types.NotifyTypeObjectStaged,
		Title: "Receiving",
		Data: map[string]any{
			"sessionId": info.ID,
			"index":     index,
			"image":     slot.Info.ImageNumber,
			"size":      slot.Info.Size,
		},
	}
}

// GroupReady lists at most MaxNotifyFiles saved paths.
func GroupReady(info types.SessionInfo, group types.Group, saved []string) *types.Notification {
	data := map[string]any{
		"sessionId":  info.ID,
		"totalFiles": len(group.Slots),
	}
	if len(saved) > MaxNotifyFiles {
		saved = saved[:MaxNotifyFiles]
	}
	if len(saved) > 0 {
		data["savedFiles"] = saved
	}
	return &types.Notification{
		Type:    types.NotifyTypeGroupReady,
		Title:   "Group Received",
		Message: fmt.Sprintf("Finished group copy: %d files from %s", len(group.Slots), info.Remote),
		Data:    data,
	}
}

func GroupCancel(info types.SessionInfo, staged int) *types.Notification {
	return &types.Notification{
		Type:    types.NotifyTypeGroupCancel,
		Title:   "Group Cancelled",
		Message: "Transfer was cancelled by the scanner",
		Data:    map[string]any{"sessionId": info.ID, "staged": staged},
	}
}

func SessionEnd(info types.SessionInfo, err error) *types.Notification {
	code, msg := tool.ExitStatus(err)
	data := map[string]any{"sessionId": info.ID, "status": code}
	if err != nil {
		data["error"] = err.Error()
	}
	return &types.Notification{
		Type:    types.NotifyTypeSessionEnd,
		Title:   "Scanner Disconnected",
		Message: msg,
		Data:    data,
	}
}
