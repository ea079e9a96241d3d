package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/msto63/ecsq/foundation/query"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/internal/store"
	"github.com/msto63/ecsq/internal/world"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/spf13/cobra"
)

var (
	generateOut       string
	generateRandomIDs bool
	importSnapshot    string
)

var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "Manage world fixtures and snapshots",
	Long: `Create, convert and inspect worlds.

A world is a YAML fixture:

  components:
    - {name: Position, size: 8}
    - {name: Health, size: 4}
  entities:
    - id: "0:1"
      components:
        Position: {float32: [1.5, 2.5]}
        Health: {int32: [100]}

or a SQLite snapshot written by "ecsq world import".`,
}

var worldGenerateCmd = &cobra.Command{
	Use:   "generate <count>",
	Short: "Generate a synthetic world as YAML",
	Long: `Generate a synthetic world of <count> entities. Every entity has
Position, even entities have Health and every third entity has Sprite.

Examples:
  ecsq world generate 100                  # YAML to stdout
  ecsq world generate 5000 -o world.yaml   # YAML to file`,
	Args: cobra.ExactArgs(1),
	RunE: runWorldGenerate,
}

var worldImportCmd = &cobra.Command{
	Use:   "import <world.yaml>",
	Short: "Store a YAML world in a SQLite snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorldImport,
}

var worldExportCmd = &cobra.Command{
	Use:   "export <world.yaml>",
	Short: "Write the loaded world as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorldExport,
}

var worldStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics of the loaded world",
	Args:  cobra.NoArgs,
	RunE:  runWorldStats,
}

func init() {
	rootCmd.AddCommand(worldCmd)
	worldCmd.AddCommand(worldGenerateCmd, worldImportCmd, worldExportCmd, worldStatsCmd)

	worldGenerateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "output file (default: stdout)")
	worldGenerateCmd.Flags().BoolVar(&generateRandomIDs, "random-ids", false, "use uuid-derived entity ids")
	worldImportCmd.Flags().StringVar(&importSnapshot, "snapshot", "", "snapshot database (default: [store] path)")
}

// loadWorld returns the world selected by --world, --db or the [world]
// section, and a description of its source
func loadWorld(ctx context.Context) (*registry.Memory, string, error) {
	logger := logging.New("world")
	opts := world.Options{Logger: logger}

	switch {
	case worldFile != "":
		reg, err := world.Load(worldFile, opts)
		return reg, "yaml:" + worldFile, err

	case dbFile != "":
		reg, err := loadSnapshot(ctx, dbFile, logger)
		return reg, "sqlite:" + dbFile, err

	case appConfig.World.Path != "":
		reg, err := world.Load(appConfig.World.Path, opts)
		return reg, "yaml:" + appConfig.World.Path, err

	default:
		n := appConfig.World.Generate
		reg, err := world.Generate(n, world.GenerateOptions{Options: opts})
		return reg, fmt.Sprintf("generated:%d", n), err
	}
}

func loadSnapshot(ctx context.Context, path string, logger *logging.Logger) (*registry.Memory, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot not found: %w", err)
	}
	st, err := store.New(store.Config{Path: path, Logger: logger})
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Load(ctx)
}

// newEngine loads the world and binds a query engine to it
func newEngine(ctx context.Context) (*query.Engine, *registry.Memory, string, error) {
	reg, source, err := loadWorld(ctx)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load world: %w", err)
	}

	engine, err := query.New(reg, query.Options{
		Logger:         logging.Root(),
		MaxInputLength: appConfig.Query.MaxInputLength,
		MaxComponents:  appConfig.Query.MaxComponents,
	})
	if err != nil {
		return nil, nil, "", err
	}

	logging.New("ecsq").Debug("World loaded", "source", source, "entities", len(reg.Entities()))
	return engine, reg, source, nil
}

func runWorldGenerate(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid entity count %q", args[0])
	}

	reg, err := world.Generate(n, world.GenerateOptions{
		Options:   world.Options{Logger: logging.New("world")},
		RandomIDs: generateRandomIDs,
	})
	if err != nil {
		return err
	}

	if generateOut == "" {
		data, err := world.Export(reg).Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := world.Save(generateOut, reg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entities to %s\n", n, generateOut)
	return nil
}

func runWorldImport(cmd *cobra.Command, args []string) error {
	logger := logging.New("world")
	reg, err := world.Load(args[0], world.Options{Logger: logger})
	if err != nil {
		return err
	}

	path := importSnapshot
	if path == "" {
		path = appConfig.Store.Path
	}
	st, err := store.New(store.Config{Path: path, Logger: logger})
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Save(cmd.Context(), reg); err != nil {
		return err
	}
	stats := reg.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entities (%d components) into %s\n", stats.Entities, stats.Components, path)
	return nil
}

func runWorldExport(cmd *cobra.Command, args []string) error {
	reg, source, err := loadWorld(cmd.Context())
	if err != nil {
		return err
	}
	if err := world.Save(args[0], reg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", source, args[0])
	return nil
}

func runWorldStats(cmd *cobra.Command, args []string) error {
	reg, source, err := loadWorld(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	stats := reg.Stats()
	fmt.Fprintf(out, "Source:      %s\n", source)
	fmt.Fprintf(out, "Entities:    %d\n", stats.Entities)
	fmt.Fprintf(out, "Components:  %d\n", stats.Components)
	fmt.Fprintf(out, "Attachments: %d\n", stats.Attachments)
	fmt.Fprintf(out, "Bytes:       %d\n", stats.Bytes)

	defs := reg.Components()
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	fmt.Fprintln(out)
	for _, def := range defs {
		set, err := reg.QueryAll([]registry.ComponentType{def.Type})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-24s %4d bytes  %d entities\n", def.Name, def.Size, set.Count())
		set.Release()
	}
	return nil
}
