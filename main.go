package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hearthlab/hearth-hub-go/api"
	"github.com/hearthlab/hearth-hub-go/api/notifyhub"
	"github.com/hearthlab/hearth-hub-go/approval"
	"github.com/hearthlab/hearth-hub-go/broadcast"
	"github.com/hearthlab/hearth-hub-go/pending"
	"github.com/hearthlab/hearth-hub-go/registration"
	"github.com/hearthlab/hearth-hub-go/registry"
	"github.com/hearthlab/hearth-hub-go/status"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}

	if cfg.UseHubName != "" {
		appCfg.HubName = cfg.UseHubName
	}
	if cfg.UsePort > 0 {
		appCfg.Port = cfg.UsePort
	}
	if cfg.UseBroadcastAddress != "" {
		appCfg.BroadcastAddress = cfg.UseBroadcastAddress
	}
	if cfg.UseBroadcastPort > 0 {
		appCfg.BroadcastPort = cfg.UseBroadcastPort
	}
	if cfg.UseDatabasePath != "" {
		appCfg.DatabasePath = cfg.UseDatabasePath
	}
	if cfg.DisableDiscovery {
		appCfg.Discovery = false
	}
	broadcast.SetBroadcastAddress(appCfg.BroadcastAddress)
	broadcast.SetBroadcastPort(appCfg.BroadcastPort)
	if cfg.UseNetworkInterface != "" {
		broadcast.SetNetworkInterface(cfg.UseNetworkInterface)
	}

	tool.InitLogger()
	switch strings.ToLower(cfg.Log) {
	case "", "prod":
		tool.DefaultLogger.SetLevel(log.InfoLevel)
	case "dev":
		tool.DefaultLogger.SetLevel(log.DebugLevel)
	case "none":
		tool.DefaultLogger.SetLevel(log.FatalLevel)
	default:
		tool.DefaultLogger.Warnf("Unknown log mode %q, using info level", cfg.Log)
		tool.DefaultLogger.SetLevel(log.InfoLevel)
	}

	db, err := registry.Open(appCfg.DatabasePath)
	if err != nil {
		tool.DefaultLogger.Fatalf("Failed to open device registry: %v", err)
	}
	store := registry.NewStore(db)

	queue := pending.NewQueue(time.Duration(appCfg.PendingTTLHours) * time.Hour)

	self := &types.AnnounceMessage{
		ID:      appCfg.HubID,
		Name:    appCfg.HubName,
		Port:    appCfg.Port,
		Version: appCfg.Version,
		Hub:     true,
	}
	listener := broadcast.NewListener(self, queue, time.Duration(appCfg.BroadcastInterval)*time.Second)
	if err := listener.Start(); err != nil {
		// Degraded mode: the HTTP surface stays up, discovery reports unavailable.
		tool.DefaultLogger.Errorf("Discovery transport failed to start: %v", err)
	}
	if appCfg.Discovery && listener.Available() {
		listener.Enable()
	}

	service := registration.NewService(store)
	workflow := approval.NewWorkflow(queue, store)
	producer := status.NewProducer(listener, queue, appCfg.HubID, appCfg.BroadcastInterval)
	coordinator := status.NewCoordinator(producer.Fetch, status.Config{})

	hub := notifyhub.New()
	hub.ObserveStatus(coordinator)
	listener.SetOnUpsert(func(dev types.PendingDevice, isNew bool) {
		notifyType := types.NotifyTypeDeviceUpdated
		title := "Device re-announced"
		if isNew {
			notifyType = types.NotifyTypeDeviceDiscovered
			title = "New device discovered"
		}
		hub.Broadcast(&types.Notification{
			Type:    notifyType,
			Title:   title,
			Message: dev.Name,
			Data:    map[string]any{"device": dev},
		})
	})

	server := api.NewServer(appCfg.Port, api.Deps{
		Self:         self,
		Listener:     listener,
		Queue:        queue,
		Workflow:     workflow,
		Registration: service,
		Store:        store,
		Producer:     producer,
		NotifyHub:    hub,
	})
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	tool.DefaultLogger.Infof("Hub %q ready (id %s)", appCfg.HubName, appCfg.HubID)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	tool.DefaultLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		tool.DefaultLogger.Errorf("API server shutdown: %v", err)
	}
	coordinator.Stop()
	listener.Stop()
	queue.Stop()
}
