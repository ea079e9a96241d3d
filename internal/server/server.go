// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     server
// Description: Runs the gRPC service and the HTTP gateway side by side
// Author:      Mike Stoffels
// Created:     2026-03-18
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/pkg/core/config"
	coreGrpc "github.com/msto63/ecsq/pkg/core/grpc"
	"github.com/msto63/ecsq/pkg/core/health"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/msto63/ecsq/pkg/core/version"
)

// Config holds server configuration
type Config struct {
	GRPC          coreGrpc.ServerConfig
	WebSocketAddr string
	ReadTimeout   time.Duration
	CacheSize     int
	CacheTTL      time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Server)
}

// ConfigFrom builds a server configuration from the [server] section
func ConfigFrom(cfg config.ServerConfig) Config {
	grpcCfg := coreGrpc.DefaultServerConfig()
	grpcCfg.Host = cfg.Host
	grpcCfg.Port = cfg.GRPCPort
	grpcCfg.EnableReflection = cfg.EnableReflection
	if cfg.KeepaliveTime.Duration > 0 {
		grpcCfg.KeepaliveInterval = cfg.KeepaliveTime.Duration
	}
	if cfg.KeepaliveTimeout.Duration > 0 {
		grpcCfg.KeepaliveTimeout = cfg.KeepaliveTimeout.Duration
	}

	return Config{
		GRPC:          grpcCfg,
		WebSocketAddr: cfg.WebSocketAddr,
		ReadTimeout:   cfg.ReadTimeout.Duration,
		CacheSize:     cfg.StatementCacheSize,
		CacheTTL:      cfg.StatementCacheTTL.Duration,
	}
}

// Server exposes a query engine over gRPC and WebSocket
type Server struct {
	service *QueryService
	grpc    *coreGrpc.Server
	http    *http.Server
	health  *health.Registry
	logger  *logging.Logger
	config  Config
}

// New creates a server for engine
func New(engine *query.Engine, cfg Config) (*Server, error) {
	logger := logging.New("server")

	service, err := NewQueryService(engine, ServiceConfig{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Logger:    logger,
	})
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to create query service").
			WithOperation("server.New")
	}

	if cfg.GRPC.Logger == nil {
		cfg.GRPC.Logger = logging.New("grpc-server")
	}
	grpcServer := coreGrpc.NewServer(cfg.GRPC)
	RegisterQueryServiceServer(grpcServer.GRPCServer(), &grpcService{service: service})

	healthRegistry := health.NewRegistry("ecsq", version.Server)
	healthRegistry.RegisterFunc("registry", registryCheck(engine.Registry()))
	healthRegistry.RegisterFunc("statement_cache", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Status:  health.StatusHealthy,
			Details: service.CacheStats(),
		}
	})

	s := &Server{
		service: service,
		grpc:    grpcServer,
		health:  healthRegistry,
		logger:  logger,
		config:  cfg,
	}

	s.http = &http.Server{
		Addr:              cfg.WebSocketAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// registryCheck reports the world size when the registry exposes stats
func registryCheck(reg registry.Registry) func(ctx context.Context) health.CheckResult {
	return func(ctx context.Context) health.CheckResult {
		stats, ok := reg.(interface{ Stats() registry.Stats })
		if !ok {
			return health.CheckResult{Status: health.StatusHealthy, Message: "registry attached"}
		}
		s := stats.Stats()
		return health.CheckResult{
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d entities, %d components", s.Entities, s.Components),
			Details: map[string]interface{}{
				"entities":    s.Entities,
				"components":  s.Components,
				"attachments": s.Attachments,
			},
		}
	}
}

// Service returns the query service
func (s *Server) Service() *QueryService {
	return s.service
}

// Health returns the health registry for additional checks
func (s *Server) Health() *health.Registry {
	return s.health
}

// GRPC returns the gRPC server
func (s *Server) GRPC() *coreGrpc.Server {
	return s.grpc
}

// Handler returns the HTTP handler serving /ws and /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", NewWebSocketHandler(s.service, s.config.ReadTimeout, s.logger.With("surface", "websocket")))
	mux.Handle("/healthz", s.health.Handler(5*time.Second))
	return mux
}

// Run serves both surfaces until ctx is canceled or one of them fails,
// then shuts both down
func (s *Server) Run(ctx context.Context) error {
	httpListener, err := net.Listen("tcp", s.config.WebSocketAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.WebSocketAddr, err)
	}

	errCh := make(chan error, 2)

	go func() {
		if err := s.grpc.Start(); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	go func() {
		s.logger.Info("HTTP gateway listening", "address", httpListener.Addr().String())
		if err := s.http.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.Shutdown()
	return runErr
}

// Shutdown stops both surfaces, forcing them after a grace period
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP gateway shutdown", "error", err)
	}
	s.grpc.StopWithTimeout(ctx)
	s.service.Close()
	s.logger.Info("Server stopped")
}
