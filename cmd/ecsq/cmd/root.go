package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/msto63/ecsq/pkg/core/config"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	verbose   bool
	worldFile string
	dbFile    string
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ecsq",
	Short: "ecsq - Entity Component Query",
	Long: `ecsq queries entity-component worlds with a small declarative language.

Queries:
  SELECT ENTITIES WHERE HAS(Position, Health)
  SELECT ENTITIES WHERE HAS_ANY(Health, Sprite)
  SELECT ENTITIES WHERE NOT_HAS(Sprite)
  COUNT ENTITIES WHERE HAS(Position)
  SHOW Health OF ENTITY 0:1
  SHOW ALL OF ENTITY 0:1

A world is loaded from a YAML fixture (--world), a SQLite snapshot (--db)
or generated from the [world] section of the configuration.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $ECSQ_CONFIG or ./configs/ecsq.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&worldFile, "world", "w", "", "YAML world fixture to load")
	rootCmd.PersistentFlags().StringVar(&dbFile, "db", "", "SQLite snapshot to load")
}

// loadConfig reads the configuration and installs the root logger
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		appConfig, err = config.Load(cfgFile)
		if err != nil {
			printError("failed to load config", err)
			return err
		}
	} else {
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			appConfig = config.Default()
		}
	}

	logCfg := logging.FromConfig("ecsq", appConfig.Logging)
	if verbose {
		logCfg.Level = "debug"
	}
	logging.Configure(logCfg)
	return nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
