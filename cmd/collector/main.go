// cmd/collector/main.go - development collector and configuration stub.
// Serves the configuration payload from a JSON file and accepts track
// events with 202, persisting them to SQLite or Postgres.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/utils"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	configFile := flag.String("config", "website-config.json", "configuration payload to serve")
	sqlitePath := flag.String("db", "collector-events.db", "sqlite event store path")
	flag.Parse()

	logger := utils.NewLogger().WithField("component", "collector-srv")

	store, err := openStore(os.Getenv("DATABASE_URL"), *sqlitePath)
	if err != nil {
		logger.Errorf("event store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	srv := &server{
		logger:     logger,
		store:      store,
		configFile: *configFile,
	}

	httpSrv := &http.Server{
		Addr:         *addr,
		Handler:      srv.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infof("collector listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("listen: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down collector...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(ctx)
}

type server struct {
	logger     utils.Logger
	store      eventStore
	configFile string
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	r.HandleFunc("/track/event", s.handleTrack).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// handleConfig serves the operator configuration payload. The apiKey
// query parameter is required; the stub accepts any non-empty key.
func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("apiKey") == "" {
		http.Error(w, "apiKey is required", http.StatusUnauthorized)
		return
	}

	data, err := os.ReadFile(s.configFile)
	if err != nil {
		s.logger.Errorf("config file: %v", err)
		http.Error(w, "configuration unavailable", http.StatusInternalServerError)
		return
	}

	// Validate before serving so a broken file fails loudly here rather
	// than silently disabling every client pipeline.
	var cfg config.RemoteConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Errorf("config file invalid: %v", err)
		http.Error(w, "configuration unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleTrack accepts one event and answers 202. Storage failures are
// logged but still answered 202: the client contract is at-most-once
// and it will not retry anyway.
func (s *server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var ev storedEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if ev.APIKey == "" || ev.EventName == "" {
		http.Error(w, "apiKey and eventName are required", http.StatusBadRequest)
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	if err := s.store.Insert(ev); err != nil {
		s.logger.Errorf("store event: %v", err)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
