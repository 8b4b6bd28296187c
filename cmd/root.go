/*
Package cmd implements the command-line interface for the MCP meta-server.
The root command starts the server on stdio; flags tune logging and the
deduplication engine.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/metamcp/pkg/aggregator"
	"github.com/theapemachine/metamcp/pkg/cache"
	"github.com/theapemachine/metamcp/pkg/dedup"
	"github.com/theapemachine/metamcp/pkg/discovery"
	"github.com/theapemachine/metamcp/pkg/metatools"
	"github.com/theapemachine/metamcp/pkg/metrics"
	"github.com/theapemachine/metamcp/pkg/registry"
)

// Version is stamped at build time.
var Version = "1.0.0"

const sweepInterval = 60 * time.Second

var (
	configFlag       string
	logLevelFlag     string
	disableDedupFlag bool
	simThresholdFlag float64
	autoMergeFlag    bool

	rootCmd = &cobra.Command{
		Use:   "metamcp",
		Short: "A meta-orchestrator that aggregates MCP tool servers behind one endpoint",
		Long:  longRoot,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
)

// Execute is the entry point for the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"JSON config file or directory of *.mcp.json files")
	rootCmd.PersistentFlags().StringVarP(&logLevelFlag, "log-level", "l", "info",
		"log level (error, warn, info, debug)")
	rootCmd.Flags().BoolVar(&disableDedupFlag, "disable-dedup", false,
		"disable tool deduplication")
	rootCmd.Flags().Float64Var(&simThresholdFlag, "sim-threshold", dedup.DefaultConfig().SimilarityThreshold,
		"similarity threshold for merging tools (0..1)")
	rootCmd.Flags().BoolVar(&autoMergeFlag, "auto-merge", dedup.DefaultConfig().AutoMerge,
		"automatically merge similar tools")
}

func initConfig() {
	viper.SetDefault("dedup.enabled", true)
	viper.SetDefault("dedup.threshold", dedup.DefaultConfig().SimilarityThreshold)
	viper.SetDefault("dedup.automerge", dedup.DefaultConfig().AutoMerge)
	viper.SetDefault("cache.maxsize", cache.DefaultMaxSize)

	// The MCP stream owns stdout; everything we say goes to stderr.
	log.SetOutput(os.Stderr)

	level, err := log.ParseLevel(logLevelFlag)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func run(cmd *cobra.Command) error {
	cmd.SilenceUsage = true

	if configFlag != "" {
		if err := loadConfigInto(configFlag); err != nil {
			log.Error("failed to load config", "path", configFlag, "error", err)
			return err
		}
	}

	if disableDedupFlag {
		viper.Set("dedup.enabled", false)
	}
	if simThresholdFlag < 0 || simThresholdFlag > 1 {
		return fmt.Errorf("sim-threshold must be between 0 and 1, got %v", simThresholdFlag)
	}
	viper.Set("dedup.threshold", simThresholdFlag)
	viper.Set("dedup.automerge", autoMergeFlag)

	dedupConfig := dedup.Config{
		Enabled:             viper.GetBool("dedup.enabled"),
		SimilarityThreshold: viper.GetFloat64("dedup.threshold"),
		AutoMerge:           viper.GetBool("dedup.automerge"),
		NameWeight:          dedup.DefaultConfig().NameWeight,
		DescriptionWeight:   dedup.DefaultConfig().DescriptionWeight,
		SchemaWeight:        dedup.DefaultConfig().SchemaWeight,
	}

	configs := discovery.Discover()
	log.Info("discovered providers", "count", len(configs))

	store := metrics.NewStore()
	reg := registry.New(store, Version)

	for _, config := range configs {
		if err := reg.Register(config); err != nil {
			log.Warn("skipping provider", "id", config.ID, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg.ConnectAll(ctx)

	resultCache := cache.New(viper.GetInt("cache.maxsize"))
	go resultCache.Run(ctx, sweepInterval)

	agg := aggregator.New(reg, store, resultCache, dedupConfig, Version)

	surface := metatools.New(agg)
	handlers := make(map[string]aggregator.MetaHandler, len(surface.Handlers))
	for name, handler := range surface.Handlers {
		handlers[name] = aggregator.MetaHandler(handler)
	}
	agg.RegisterMetaTools(surface.Tools, handlers)

	go func() {
		<-ctx.Done()
		log.Info("shutting down providers")
		reg.Shutdown()
	}()

	defer reg.Shutdown()

	return agg.Serve()
}

// loadConfigInto reads the --config path (file or directory) and places
// its providers into MCP_SERVER_CONFIG for discovery to pick up.
func loadConfigInto(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var configs []registry.ProviderConfig

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mcp.json") {
				continue
			}

			data, err := os.ReadFile(filepath.Join(path, entry.Name()))
			if err != nil {
				return err
			}

			parsed, err := discovery.ParseConfigs(data)
			if err != nil {
				return fmt.Errorf("invalid config %s: %w", entry.Name(), err)
			}

			configs = append(configs, parsed...)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		configs, err = discovery.ParseConfigs(data)
		if err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	encoded, err := json.Marshal(configs)
	if err != nil {
		return err
	}

	return os.Setenv(discovery.EnvVar, string(encoded))
}

var longRoot = `
metamcp presents itself to an MCP client as a single server while
aggregating any number of downstream MCP servers launched as child
processes. Near-identical tools are deduplicated into one surface,
invocations are routed to the best-performing provider with automatic
failover, and results are cached where safe.

Provider configs come from the MCP_SERVER_CONFIG environment variable,
well-known editor directories, or the --config flag.
`
