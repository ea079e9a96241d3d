package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/internal/server"
	"github.com/msto63/ecsq/internal/store"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/msto63/ecsq/pkg/core/version"
	"github.com/spf13/cobra"
)

var (
	serveGRPCPort     int
	serveWSAddr       string
	serveSnapshotPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the loaded world over gRPC and WebSocket",
	Long: `Serve queries against the loaded world.

Surfaces:
  gRPC       ecsq.v1.QueryService/Execute (default :9310)
  WebSocket  /ws on the HTTP gateway (default :8310)
  Health     /healthz on the HTTP gateway

Examples:
  ecsq serve --world world.yaml
  ecsq serve --db data/world.db --grpc-port 9400
  ecsq serve --snapshot data/world.db   # write a snapshot on shutdown`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC port (default: [server] grpc_port)")
	serveCmd.Flags().StringVar(&serveWSAddr, "ws-addr", "", "HTTP gateway address (default: [server] websocket_addr)")
	serveCmd.Flags().StringVar(&serveSnapshotPath, "snapshot", "", "save the world to this SQLite snapshot on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.New("serve")

	engine, reg, source, err := newEngine(ctx)
	if err != nil {
		printError("failed to prepare engine", err)
		return err
	}

	cfg := server.ConfigFrom(appConfig.Server)
	if serveGRPCPort > 0 {
		cfg.GRPC.Port = serveGRPCPort
	}
	if serveWSAddr != "" {
		cfg.WebSocketAddr = serveWSAddr
	}

	srv, err := server.New(engine, cfg)
	if err != nil {
		printError("failed to create server", err)
		return err
	}

	logger.Info("Starting ecsq server",
		"version", version.Server,
		"world", source,
		"grpc", fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port),
		"http", cfg.WebSocketAddr,
	)

	runErr := srv.Run(ctx)
	if runErr != nil {
		logger.Error("Server failed", "error", runErr)
	}

	if serveSnapshotPath != "" {
		if err := saveSnapshot(serveSnapshotPath, reg, logger); err != nil {
			logger.Error("Snapshot failed", "path", serveSnapshotPath, "error", err)
			runErr = errors.Join(runErr, err)
		}
	}
	return runErr
}

// saveSnapshot runs after the serve context is canceled, so it gets its
// own deadline
func saveSnapshot(path string, reg *registry.Memory, logger *logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.New(store.Config{Path: path, Logger: logger})
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Save(ctx, reg); err != nil {
		return err
	}
	logger.Info("Snapshot saved", "path", path, "entities", len(reg.Entities()))
	return nil
}
