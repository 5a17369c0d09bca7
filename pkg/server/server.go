// Package server exposes the cluster status query surface over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"voicemesh/config"
	"voicemesh/pkg/cluster"
	"voicemesh/pkg/identity"
	"voicemesh/pkg/metrics"
	"voicemesh/storage"
)

const shutdownTimeout = 5 * time.Second

// Server serves the status, identity and routing endpoints consumed by
// collaborators (chat adapter, VoIP routing) and the CLI.
type Server struct {
	config       *config.Config
	orchestrator *cluster.Orchestrator
	identity     *identity.Manager
	store        storage.Store
	http         *http.Server
}

// NewServer creates a server instance and wires up its routes.
func NewServer(cfg *config.Config, orch *cluster.Orchestrator, idm *identity.Manager, store storage.Store) *Server {
	s := &Server{
		config:       cfg,
		orchestrator: orch,
		identity:     idm,
		store:        store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/cluster/status", s.handleClusterStatus)
	mux.HandleFunc("/cluster/identity", s.handleClusterIdentity)
	mux.HandleFunc("/cluster/nodes", s.handleNodes)
	mux.HandleFunc("/cluster/nodes/", s.handleNode)
	mux.HandleFunc("/requests", s.handleAllocate)
	mux.HandleFunc("/requests/", s.handleRelease)
	mux.HandleFunc("/identity/verify", s.handleVerify)

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.DefaultRegistry().Handler())
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the context is cancelled, then stops gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	log.Printf("Starting voicemesh server on %s", s.http.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the server down gracefully with a bounded timeout.
func (s *Server) Stop() error {
	log.Printf("Stopping voicemesh server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("Force stopping server: %v", err)
		return s.http.Close()
	}
	log.Printf("Server stopped gracefully")
	return nil
}
