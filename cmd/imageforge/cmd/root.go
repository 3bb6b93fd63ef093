package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imageforge/imageforge/pkg/codec"
	"github.com/imageforge/imageforge/pkg/config"
	"github.com/imageforge/imageforge/pkg/convert"
	"github.com/imageforge/imageforge/pkg/logging"
	"github.com/imageforge/imageforge/pkg/telemetry"
)

var (
	cfgFile      string
	outputFormat string

	cfg config.Config
	log *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "imageforge",
	Short: "Image conversion orchestration and telemetry",
	Long: `imageforge converts images between formats through a pluggable codec
engine, with progress reporting, batch runs, telemetry collection and
performance reports.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.imageforge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json or yaml")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log = logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// IsYAMLOutput returns true if YAML output is requested
func IsYAMLOutput() bool {
	return outputFormat == "yaml"
}

// runtime bundles the live conversion components a command needs
type runtime struct {
	loader    *codec.Loader
	collector *telemetry.Collector
	orch      *convert.Orchestrator
	batch     *convert.BatchCoordinator
}

// newRuntime loads the engine and wires the orchestration stack
func newRuntime(ctx context.Context) (*runtime, error) {
	factory := func(ctx context.Context) (codec.Engine, error) {
		opts := []codec.SimOption{codec.WithDelay(cfg.EngineDelay)}
		if cfg.EngineSeed != 0 {
			opts = append(opts, codec.WithSeed(cfg.EngineSeed))
		}
		return codec.NewSimEngine(opts...), nil
	}
	loader := codec.NewLoader(factory, log)
	if _, err := loader.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load codec engine: %w", err)
	}

	collector := telemetry.NewCollector(log)
	orch := convert.NewOrchestrator(loader, collector, log)
	return &runtime{
		loader:    loader,
		collector: collector,
		orch:      orch,
		batch:     convert.NewBatchCoordinator(orch, log),
	}, nil
}

func (rt *runtime) Close() {
	rt.collector.StopSampling()
	rt.loader.Close()
}
