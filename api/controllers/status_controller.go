package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gcomserver-go/api/models"
	"github.com/moyoez/gcomserver-go/tool"
)

// UserStatus reports whether the server runs and how busy it is.
// GET /api/self/v1/status
func UserStatus(c *gin.Context) {
	cfg := models.GetRuntimeConfig()
	c.JSON(http.StatusOK, gin.H{
		"running":           true,
		"version":           tool.Version,
		"activeSessions":    models.ActiveSessionCount(),
		"keepFiles":         cfg.KeepFiles,
		"notify_ws_enabled": models.GetNotifyHub() != nil,
	})
}

// UserSessions lists the connected scanners and their protocol state.
// GET /api/self/v1/sessions
func UserSessions(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(models.ListSessions()))
}

// UserGroups lists recently completed groups.
// GET /api/self/v1/groups
func UserGroups(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(models.RecentGroups()))
}

// UserConfigGet returns the effective configuration.
// GET /api/self/v1/config
func UserConfigGet(c *gin.Context) {
	c.JSON(http.StatusOK, models.GetRuntimeConfig())
}
