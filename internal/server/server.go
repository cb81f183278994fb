// Package server wires the template store, retriever, and generation
// pipeline into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/config"
	"github.com/mrlynn/design-reviewer-backend/internal/generate"
	"github.com/mrlynn/design-reviewer-backend/internal/providers"
	"github.com/mrlynn/design-reviewer-backend/internal/retrieval"
	"github.com/mrlynn/design-reviewer-backend/internal/server/endpoints"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// Server is the design-reviewer HTTP server. It owns the template store's
// lifecycle - opening it on start and closing it on shutdown.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	logger     *slog.Logger

	store     store.Store
	retriever retrieval.Retriever
	llm       providers.LLMClient
	pipeline  *generate.Pipeline

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// New creates a new Server from the resolved configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	host := cfg.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{cfg.Server.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(host, port),
		Handler:      corsMiddleware.Handler(s.withServices(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start initializes the store, retriever, and pipeline, then serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	st, err := store.OpenBadger(store.BadgerConfig{
		Path:     s.cfg.Store.Path,
		InMemory: s.cfg.Store.InMemory,
		Logger:   s.logger,
	})
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open template store: %w", err)
	}
	s.store = st
	s.logger.Info("template store ready", "path", s.cfg.Store.Path, "in_memory", s.cfg.Store.InMemory)

	if s.cfg.Retrieval.Enabled {
		retriever, err := retrieval.NewWeaviateRetriever(retrieval.WeaviateConfig{
			Scheme:    s.cfg.Retrieval.Scheme,
			Host:      s.cfg.Retrieval.Host,
			ClassName: s.cfg.Retrieval.ClassName,
			Logger:    s.logger,
		})
		if err != nil {
			// Retrieval is a soft dependency: generation degrades without
			// it instead of the server refusing to start.
			s.logger.Warn("retriever unavailable, continuing without context retrieval", "error", err)
		} else {
			s.retriever = retriever
			s.logger.Info("retriever ready", "host", s.cfg.Retrieval.Host, "class", s.cfg.Retrieval.ClassName)
		}
	}

	llm, err := providers.NewOpenAIClient(providers.OpenAIConfig{
		APIKey:      s.cfg.ResolveAPIKey(),
		Model:       s.cfg.OpenAI.Model,
		Temperature: s.cfg.OpenAI.Temperature,
		MaxTokens:   s.cfg.OpenAI.MaxTokens,
		Logger:      s.logger,
	})
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to create openai client: %w", err)
	}
	s.llm = llm

	s.pipeline = generate.New(s.store, s.retriever, s.llm, generate.Config{
		TopK:           s.cfg.Retrieval.TopK,
		MaxPromptChars: s.cfg.Prompt.MaxChars,
		ModelTimeout:   s.cfg.OpenAI.RequestTimeout,
	}, s.logger)

	s.services = &svcctx.Services{
		Store:     s.store,
		Retriever: s.retriever,
		LLM:       s.llm,
		Pipeline:  s.pipeline,
		Logger:    s.logger,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("template store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Store returns the template store. Nil until Start has initialized it.
func (s *Server) Store() store.Store {
	return s.store
}

// Pipeline returns the generation pipeline. Nil until Start has initialized it.
func (s *Server) Pipeline() *generate.Pipeline {
	return s.pipeline
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the store and pipeline are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.pipeline == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
