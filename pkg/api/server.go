// Package api exposes the marketplace over HTTP: a REST surface, a
// server-sent-events stream, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/raikusim/slotmarket/pkg/config"
	"github.com/raikusim/slotmarket/pkg/coordinator"
)

const sessionTTL = 30 * time.Minute

// Server serves the HTTP boundary over the coordinator.
type Server struct {
	cfg      *config.ServerConfig
	coord    *coordinator.Coordinator
	sessions *SessionManager
	clk      clock.Clock
	log      logrus.FieldLogger

	srv    *http.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates the HTTP server.
func NewServer(cfg *config.ServerConfig, coord *coordinator.Coordinator, clk clock.Clock, log logrus.FieldLogger) *Server {
	s := &Server{
		cfg:      cfg,
		coord:    coord,
		sessions: NewSessionManager(sessionTTL, log),
		clk:      clk,
		log:      log.WithField("component", "api"),
	}

	router := mux.NewRouter()

	router.HandleFunc("/sessions", s.CreateSession).Methods(http.MethodPost)
	router.HandleFunc("/events", s.EventStream).Methods(http.MethodGet)
	router.HandleFunc("/marketplace/status", s.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/marketplace/slots", s.ListSlots).Methods(http.MethodGet)
	router.HandleFunc("/marketplace/slots/{slot_number}", s.GetSlot).Methods(http.MethodGet)
	router.HandleFunc("/auctions/jit", s.ListJitAuctions).Methods(http.MethodGet)
	router.HandleFunc("/auctions/aot", s.ListAotAuctions).Methods(http.MethodGet)
	router.HandleFunc("/transactions/jit", s.SubmitJitBid).Methods(http.MethodPost)
	router.HandleFunc("/transactions/aot", s.SubmitAotBid).Methods(http.MethodPost)
	router.HandleFunc("/transactions", s.ListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{transaction_id}", s.GetTransaction).Methods(http.MethodGet)
	router.HandleFunc("/health", s.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	corsLayer := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Cookie", "Cache-Control"},
		AllowCredentials: true,
	})

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(corsLayer.Handler(router))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		WriteTimeout: 0,
		ReadTimeout:  0,
		IdleTimeout:  120 * time.Second,
		Handler:      n,
	}

	return s
}

// Handler returns the root handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving and runs the session cleanup loop.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := s.clk.Ticker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sessions.CleanupExpired(s.clk.Now())
			}
		}
	}()

	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("HTTP server listening")

		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Fatal("HTTP server failed")
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("HTTP server shutdown failed")
	}

	s.wg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}
