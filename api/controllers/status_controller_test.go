package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/gcomserver-go/api/middlewares"
	"github.com/moyoez/gcomserver-go/api/models"
	"github.com/moyoez/gcomserver-go/types"
)

// setupRouter creates a test router with the status endpoints
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	self := router.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", UserStatus)
		self.GET("/sessions", UserSessions)
		self.GET("/groups", UserGroups)
		self.GET("/config", UserConfigGet)
		self.GET("/notify-ws", HandleNotifyWS(nil))
	}
	return router
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:50000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUserStatus(t *testing.T) {
	models.SetRuntimeConfig(types.AppConfig{KeepFiles: true})
	router := setupRouter()

	w := get(t, router, "/api/self/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["running"])
	assert.Equal(t, true, body["keepFiles"])
	assert.Contains(t, body, "activeSessions")
}

func TestUserSessionsListsRegistry(t *testing.T) {
	reg := models.Registry{}
	started := time.Now()
	reg.Add("s-1", func() types.SessionStatus {
		return types.SessionStatus{
			SessionInfo: types.SessionInfo{ID: "s-1", Remote: "10.0.0.2:1", StartedAt: started},
			State:       types.StateReadyForObject.String(),
			Expected:    4,
			Received:    1,
		}
	})
	defer reg.Remove("s-1")

	w := get(t, setupRouter(), "/api/self/v1/sessions")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []types.SessionStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "READY_FOR_OBJECT", body.Data[0].State)
	assert.Equal(t, 4, body.Data[0].Expected)
}

func TestUserGroupsListsRecent(t *testing.T) {
	models.RecordGroup(types.GroupSummary{SessionID: "g-test", Objects: 2, ReceivedAt: time.Now()})

	w := get(t, setupRouter(), "/api/self/v1/groups")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []types.GroupSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	var ids []string
	for _, g := range body.Data {
		ids = append(ids, g.SessionID)
	}
	assert.Contains(t, ids, "g-test")
}

func TestNotifyWSWithoutHub(t *testing.T) {
	w := get(t, setupRouter(), "/api/self/v1/notify-ws")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRemoteClientsAreRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/self/v1/status", nil)
	req.RemoteAddr = "192.0.2.10:40000"
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
