package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/gcomserver-go/api/controllers"
	"github.com/moyoez/gcomserver-go/api/middlewares"
	"github.com/moyoez/gcomserver-go/api/models"
	"github.com/moyoez/gcomserver-go/tool"
)

// Server is the local status API: live sessions, recent groups and a
// websocket notification stream.
type Server struct {
	addr   string
	engine *gin.Engine
	server *http.Server
	ln     net.Listener
	mu     sync.RWMutex
}

// NewServer creates a status API server bound to addr on Start.
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Handler returns the route tree; exposed for tests.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = setupRoutes()
	}
	return s.engine
}

func setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", controllers.UserStatus)     // running, active sessions, keep-files
		self.GET("/sessions", controllers.UserSessions) // connected scanners
		self.GET("/groups", controllers.UserGroups)     // recently completed groups
		self.GET("/config", controllers.UserConfigGet)  // effective configuration
		self.GET("/notify-ws", controllers.HandleNotifyWS(models.GetNotifyHub()))
	}
	return engine
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	handler := s.Handler()
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status API listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	tool.DefaultLogger.Infof("Starting status API on http://%s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
