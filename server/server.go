package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/pkg/nnremote"
	"github.com/cyclopcam/firewatch/server/config"
	"github.com/cyclopcam/firewatch/server/configdb"
	"github.com/cyclopcam/firewatch/server/metrics"
	"github.com/cyclopcam/firewatch/server/monitor"
	"github.com/cyclopcam/firewatch/server/notifications"
	"github.com/cyclopcam/firewatch/server/storage"
	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

type Server struct {
	Log              logs.Log
	Config           *config.Config
	ShutdownComplete chan error // Receives one value when Shutdown() has finished

	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
	wsUpgrader websocket.Upgrader
	configDB   *configdb.ConfigDB
	monitor    *monitor.Monitor
	gatekeeper *notifications.Gatekeeper
	snapshots  *storage.Snapshots
	metrics    *metrics.Metrics
	cron       *cron.Cron
}

// Create a new server from a loaded config.
// The caller owns logger, but the server closes it on Shutdown.
func NewServer(logger logs.Log, cfg *config.Config) (*Server, error) {
	var modelConfig *nn.ModelConfig
	if cfg.Classifier.ModelConfigFile != "" {
		mc, err := nn.LoadModelConfig(cfg.Classifier.ModelConfigFile)
		if err != nil {
			return nil, fmt.Errorf("Failed to load model config: %w", err)
		}
		modelConfig = mc
	}
	classifier := nnremote.NewClient(cfg.Classifier.URL, modelConfig)
	logger.Infof("Using classifier at %v", cfg.Classifier.URL)

	var deliverer notifications.Deliverer
	if cfg.Telegram.BotToken != "" {
		deliverer = notifications.NewTelegram(logger, cfg.Telegram.APIUrl, cfg.HttpTimeout())
	} else {
		logger.Warnf("No Telegram bot token. Alerts are disabled")
	}

	var store storage.Storage
	var err error
	if cfg.Storage.GCS != nil {
		// Google Cloud Storage
		store, err = storage.NewStorageGCS(logger, cfg.Storage.GCS.Bucket, cfg.Storage.GCS.Public)
	} else if cfg.Storage.Filesystem != nil {
		// Filesystem
		store, err = storage.NewStorageFS(logger, cfg.Storage.Filesystem.Root)
	} else {
		err = fmt.Errorf("One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')")
	}
	if err != nil {
		return nil, err
	}

	var db *configdb.ConfigDB
	if cfg.DB.Driver != "" {
		db, err = configdb.NewConfigDBFromConfig(logger, cfg.DB)
	} else {
		db, err = configdb.NewConfigDB(logger, cfg.DBFilename)
	}
	if err != nil {
		return nil, err
	}

	return newServer(logger, cfg, db, classifier, deliverer, store)
}

func newServer(logger logs.Log, cfg *config.Config, db *configdb.ConfigDB, classifier nn.Classifier, deliverer notifications.Deliverer, store storage.Storage) (*Server, error) {
	s := &Server{
		Log:       logger,
		Config:    cfg,
		configDB:  db,
		metrics:   metrics.New(),
		snapshots: storage.NewSnapshots(logger, store),
		cron:      cron.New(),
	}
	s.ShutdownComplete = make(chan error, 1)
	s.gatekeeper = notifications.NewGatekeeper(logger, cfg.NotificationSettings(), deliverer, s.snapshots)
	s.monitor = monitor.NewMonitor(logger, cfg.Monitor, classifier, s.gatekeeper, db, s.metrics)
	s.registerSessionMetrics()

	if err := s.startRetention(); err != nil {
		return nil, err
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Expose the live session state as gauges
func (s *Server) registerSessionMetrics() {
	s.metrics.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "firewatch_session_active",
			Help: "1 if detection is running",
		},
		func() float64 {
			if s.monitor.Status().Active {
				return 1
			}
			return 0
		},
	))
	s.metrics.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "firewatch_session_confirmed",
			Help: "Confirmed events since the counter was last reset",
		},
		func() float64 { return float64(s.monitor.Status().TotalConfirmed) },
	))
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
			s.Shutdown()
		} else {
			// Shutdown() was called by something other than ourselves, and it closed signalIn
			s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}
	if s.httpServer != nil {
		s.Log.Infof("Closing HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP server shutdown error: %v", err)
		}
	}
	<-s.cron.Stop().Done()
	s.monitor.Close()
	if sqlDB, err := s.configDB.DB.DB(); err == nil {
		sqlDB.Close()
	}
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
	s.ShutdownComplete <- nil
}

// Monitor exposes the detection pipeline to in-process callers
func (s *Server) Monitor() *monitor.Monitor {
	return s.monitor
}
