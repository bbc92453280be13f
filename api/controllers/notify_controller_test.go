package controllers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/gcomserver-go/api/models"
	"github.com/moyoez/gcomserver-go/types"
)

func readNotification(t *testing.T, conn *websocket.Conn) types.Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var n types.Notification
	require.NoError(t, json.Unmarshal(data, &n))
	return n
}

func TestNotifyWSSnapshotThenBroadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := models.NewHub()
	router := gin.New()
	router.GET("/notify-ws", HandleNotifyWS(hub))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notify-ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readNotification(t, conn)
	assert.Equal(t, types.NotifyTypeSnapshot, first.Type)
	assert.Contains(t, first.Data, "activeSessions")

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Broadcast(&types.Notification{Type: types.NotifyTypeGroupBegin, Data: map[string]any{"expected": 3}})

	next := readNotification(t, conn)
	assert.Equal(t, types.NotifyTypeGroupBegin, next.Type)
	assert.EqualValues(t, 3, next.Data["expected"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
