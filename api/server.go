package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/hearthlab/hearth-hub-go/api/controllers"
	"github.com/hearthlab/hearth-hub-go/api/middlewares"
	"github.com/hearthlab/hearth-hub-go/api/notifyhub"
	"github.com/hearthlab/hearth-hub-go/approval"
	"github.com/hearthlab/hearth-hub-go/broadcast"
	"github.com/hearthlab/hearth-hub-go/pending"
	"github.com/hearthlab/hearth-hub-go/registration"
	"github.com/hearthlab/hearth-hub-go/registry"
	"github.com/hearthlab/hearth-hub-go/status"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
	"github.com/patrickmn/go-cache"
)

// statusCacheTTL bounds how stale GET /status may be.
const statusCacheTTL = 2 * time.Second

// Deps bundles everything the HTTP surface needs. All fields except NotifyHub
// are required.
type Deps struct {
	Self         *types.AnnounceMessage
	Listener     *broadcast.Listener
	Queue        *pending.Queue
	Workflow     *approval.Workflow
	Registration *registration.Service
	Store        *registry.Store
	Producer     *status.Producer
	NotifyHub    *notifyhub.Hub
}

// Server is the HTTP API server for operator and device endpoints.
type Server struct {
	port   int
	deps   Deps
	server *http.Server
	mu     sync.RWMutex
}

// NewServer creates an API server listening on the given port.
func NewServer(port int, deps Deps) *Server {
	return &Server{port: port, deps: deps}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()
	engine.Use(middlewares.AllowAllCORS())
	engine.Use(gin.Recovery())

	statusCtrl := controllers.NewStatusController(s.deps.Producer)
	discoveryCtrl := controllers.NewDiscoveryController(s.deps.Listener)
	pendingCtrl := controllers.NewPendingController(s.deps.Queue, s.deps.Workflow, notifier(s.deps.NotifyHub))
	registrationCtrl := controllers.NewRegistrationController(s.deps.Registration)
	devicesCtrl := controllers.NewDevicesController(s.deps.Store)
	connectCtrl := controllers.NewConnectController(s.deps.Registration, s.deps.Store, s.deps.Listener, s.deps.Self)

	statusCache := cache.New(statusCacheTTL, time.Minute)

	hub := engine.Group("/api/hub/v1", middlewares.OnlyAllowLocal)
	{
		hub.GET("/status", middlewares.CacheResponse(statusCache, statusCacheTTL), statusCtrl.HandleStatus)
		hub.POST("/discovery/enable", discoveryCtrl.HandleEnable)
		hub.POST("/discovery/disable", discoveryCtrl.HandleDisable)
		hub.GET("/pending", pendingCtrl.HandleList)
		hub.POST("/pending/:id/approve", pendingCtrl.HandleApprove)
		hub.POST("/pending/:id/reject", pendingCtrl.HandleReject)
		hub.DELETE("/pending", pendingCtrl.HandleClear)
		hub.POST("/register", registrationCtrl.HandleIssue)
		hub.GET("/register/qr", registrationCtrl.HandleCodeQR)
		hub.GET("/devices", devicesCtrl.HandleList)
		hub.GET("/devices/:id", devicesCtrl.HandleGet)
		if s.deps.NotifyHub != nil {
			hub.GET("/notify-ws", HandleNotifyWS(s.deps.NotifyHub))
		}
	}

	device := engine.Group("/api/device/v1")
	{
		device.POST("/connect", connectCtrl.HandleConnect)
		device.POST("/announce", connectCtrl.HandleAnnounce)
	}

	return engine
}

// notifier converts a possibly-nil *Hub into a possibly-nil interface value.
func notifier(hub *notifyhub.Hub) controllers.Notifier {
	if hub == nil {
		return nil
	}
	return hub
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: engine,
	}
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://0.0.0.0:%d", s.port)
	return s.server.ListenAndServe()
}

// Stop shuts the server down, letting in-flight requests finish.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
