// Command vafrun hosts the Executable Controller: it loads a static
// topology/schedule manifest, wires the ambient stack (logging, metrics,
// tracing), registers the built-in HelloVaf demo modules, and runs until
// a shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oriys/vaf/internal/config"
	"github.com/oriys/vaf/internal/executor"
	"github.com/oriys/vaf/internal/logging"
	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/observability"
	"github.com/oriys/vaf/internal/runtime"
	"github.com/oriys/vaf/internal/service/demo"
)

var version = "dev"

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "vafrun",
		Short: "Run the VAF runtime",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML runtime manifest")
	root.AddCommand(runCmd(), validateCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}
	return config.ApplyEnv(cfg), nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Executable Controller and run until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)

			ctx := context.Background()
			if err := observability.Init(ctx, observability.Config{
				Enabled:     cfg.Tracing.Enabled,
				Exporter:    cfg.Tracing.Exporter,
				Endpoint:    cfg.Tracing.Endpoint,
				ServiceName: "vafrun",
				SampleRate:  cfg.Tracing.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			var mtx *metrics.Metrics
			if cfg.Metrics.Enabled {
				mtx = metrics.Init(cfg.Metrics.Namespace)
				go serveMetrics(cfg.Metrics.Addr, mtx)
			}

			exec := executor.New(cfg.Executor.TickInterval,
				executor.WithLogger(logging.Op()),
				executor.WithMetrics(mtx),
			)

			rc := runtime.New(exec, runtime.WithLogger(logging.Op()), runtime.WithMetrics(mtx))

			registerHelloVaf(exec, rc, mtx, cfg)

			logging.Op().Info("vafrun starting", "tick_interval", cfg.Executor.TickInterval)
			return rc.Run(ctx)
		},
	}
}

// registerHelloVaf wires the built-in HelloVaf demo provider/consumer as
// the default payload; a real deployment would instead register
// application-specific Service Modules here, driven by cfg.Schedule.
func registerHelloVaf(exec *executor.Executor, rc *runtime.Controller, mtx *metrics.Metrics, cfg config.Config) {
	providerPeriod := ticksFor(cfg, 500*time.Millisecond)
	consumerPeriod := ticksFor(cfg, time.Second)
	if o, ok := cfg.OverrideFor("hello.provider", "publish"); ok && o.Period > 0 {
		providerPeriod = ticksFor(cfg, o.Period)
	}
	if o, ok := cfg.OverrideFor("hello.consumer", "set_msg_id"); ok && o.Period > 0 {
		consumerPeriod = ticksFor(cfg, o.Period)
	}

	provider := demo.NewProvider(exec, rc, mtx, providerPeriod)
	rc.RegisterModule(provider)

	consumer := demo.NewConsumer(exec, rc, provider.Hello, consumerPeriod)
	rc.RegisterModule(consumer)
}

// ticksFor converts a wall-clock period from the manifest into a tick
// count for the executor's configured tick interval, rounding up so a
// period is never scheduled faster than requested.
func ticksFor(cfg config.Config, period time.Duration) uint64 {
	interval := cfg.Executor.TickInterval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticks := uint64((period + interval - 1) / interval)
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

func serveMetrics(addr string, mtx *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mtx.Handler())
	logging.Op().Info("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.Op().Error("metrics server stopped", "error", err)
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a runtime manifest without starting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("invalid manifest: %w", err)
			}
			fmt.Printf("manifest OK: tick_interval=%s schedule_overrides=%d\n",
				cfg.Executor.TickInterval, len(cfg.Schedule))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vafrun version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("vafrun", version)
			return nil
		},
	}
}
