package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/gcomserver-go/api/models"
	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

const (
	listenerPongWait   = 60 * time.Second
	listenerPingPeriod = listenerPongWait * 9 / 10
	listenerReadLimit  = 512
)

var listenerUpgrader = websocket.Upgrader{
	// OnlyAllowLocal already restricts callers to loopback.
	CheckOrigin: func(*http.Request) bool { return true },
}

// HandleNotifyWS streams notifications to a websocket listener. The first
// message is a snapshot of the live sessions.
// GET /api/self/v1/notify-ws
func HandleNotifyWS(hub *models.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub == nil {
			c.JSON(http.StatusServiceUnavailable, tool.FastReturnError("notify hub disabled"))
			return
		}
		conn, err := listenerUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Debugf("[Notify] websocket upgrade failed: %v", err)
			return
		}
		hub.Register(conn)
		defer func() {
			hub.Unregister(conn)
			_ = conn.Close()
		}()

		snapshot := &types.Notification{
			Type:  types.NotifyTypeSnapshot,
			Title: "Connected",
			Data: map[string]any{
				"activeSessions": models.ActiveSessionCount(),
				"sessions":       models.ListSessions(),
			},
		}
		if err := hub.SendTo(conn, snapshot); err != nil {
			return
		}

		conn.SetReadLimit(listenerReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(listenerPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(listenerPongWait))
		})

		done := make(chan struct{})
		defer close(done)
		go ping(conn, done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(listenerPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(models.NotifyWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
