// Package server exposes the FD manager over HTTP: password login, upload,
// search, add and renew, reports and export, all scoped to a session cookie.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/fd-manager/fdm/internal/config"
	"github.com/fd-manager/fdm/internal/session"
	"github.com/fd-manager/fdm/internal/sheet"
)

// CookieName names the session cookie.
const CookieName = "fdm_session"

// maxUploadBytes bounds an uploaded spreadsheet.
const maxUploadBytes = 32 << 20

// Server handles the HTTP API.
type Server struct {
	cfg    *config.Config
	gate   *session.Gate
	store  *session.Store
	sheets *sheet.Registry
	log    *slog.Logger
	now    func() time.Time
}

// New creates a Server from cfg. A nil logger discards logs.
func New(cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:    cfg,
		gate:   session.NewGate(cfg.Auth.Password),
		store:  session.NewStore(),
		sheets: sheet.DefaultRegistry(),
		log:    log,
		now:    time.Now,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/api/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", s.logout).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/upload", s.upload).Methods(http.MethodPost)
	api.HandleFunc("/records", s.listRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", s.addRecord).Methods(http.MethodPost)
	api.HandleFunc("/records/{fdr}", s.getRecord).Methods(http.MethodGet)
	api.HandleFunc("/records/{fdr}/renew", s.renewRecord).Methods(http.MethodPost)
	api.HandleFunc("/reports/banks", s.bankReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/pivot", s.pivotReport).Methods(http.MethodPost)
	api.HandleFunc("/reports/shares", s.sharesReport).Methods(http.MethodGet)
	api.HandleFunc("/export", s.export).Methods(http.MethodGet)

	return r
}

// Sweep removes sessions idle for longer than the configured TTL.
func (s *Server) Sweep() {
	if n := s.store.Prune(s.cfg.Server.SessionTTL); n > 0 {
		s.log.Info("pruned idle sessions", "count", n, "live", s.store.Len())
	}
}

// Run serves on the configured address until ctx is cancelled, pruning idle
// sessions on the configured schedule.
func (s *Server) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Server.SweepSchedule, s.Sweep); err != nil {
		return fmt.Errorf("scheduling session sweep %q: %w", s.cfg.Server.SweepSchedule, err)
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", s.cfg.Server.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.log.Info("stopped")
	return nil
}
