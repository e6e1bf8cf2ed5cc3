package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/coordpool/pkg/config"
	"github.com/cuemby/coordpool/pkg/log"
	"github.com/cuemby/coordpool/pkg/metrics"
	"github.com/cuemby/coordpool/pkg/pool"
	"github.com/cuemby/coordpool/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "coordpool",
	Short:   "coordpool - an in-memory coordination pool for cognitive-agent task scheduling",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"coordpool version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	runCmd.Flags().String("config", "", "Path to a pool config YAML file")
	runCmd.Flags().Int("size", 0, "Worker pool size (overrides config)")
	runCmd.Flags().String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a coordination pool and run a demonstration workload",
	Long: `Run initializes a coordination pool from a config file (or built-in
defaults), spawns its workers, submits a small demonstration batch of tasks
(one each of general, research, ingest and heartbeat), and prints the resulting metrics snapshot and
isolation report before shutting down cleanly on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		size, _ := cmd.Flags().GetInt("size")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg := config.Default()
		if cfgPath != "" {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
		}
		if size > 0 {
			cfg.Pool.Size = size
		}

		p := pool.New(cfg.PoolConfig())
		p.Start()

		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/health", metrics.HealthHandler())
			mux.Handle("/ready", metrics.ReadyHandler())
			go func() {
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					log.Errorf("metrics server stopped: %v", err)
				}
			}()
			fmt.Printf("Metrics listening on %s\n", metricsAddr)
		}

		ids, err := p.InitializePool(cfg.Pool.Size)
		if err != nil {
			return fmt.Errorf("initialize pool: %w", err)
		}
		fmt.Printf("Spawned %d workers\n", len(ids))

		sample := []types.TaskType{
			types.TaskGeneral,
			types.TaskResearch,
			types.TaskIngest,
			types.TaskHeartbeat,
		}
		submitted := 0
		for _, t := range sample {
			res, err := p.SubmitTask(pool.SubmitRequest{
				Type:    t,
				Payload: map[string]any{"demo": true},
				Strict:  cfg.Pool.StrictAdmission,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "submit %s: %v\n", t, err)
				continue
			}
			submitted++
			fmt.Printf("Submitted %s task %s -> %s\n", t, res.TaskID, res.Status)
		}
		fmt.Printf("Submitted %d/%d demonstration tasks\n", submitted, len(sample))

		snap := p.Metrics()
		printSnapshot(snap)

		report := p.IsolationReport()
		if report.Isolated {
			fmt.Println("Isolation report: no collisions")
		} else {
			fmt.Printf("Isolation report: %d collision(s)\n", len(report.Collisions))
		}

		fmt.Println()
		fmt.Println("Pool is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		cancelled := p.ShutdownPool()
		fmt.Printf("✓ Shutdown complete (%d task(s) cancelled)\n", cancelled)
		return nil
	},
}

func printSnapshot(s types.MetricsSnapshot) {
	fmt.Println()
	fmt.Println("Metrics snapshot:")
	fmt.Printf("  workers:            %d\n", s.Workers)
	fmt.Printf("  tasks total:        %d\n", s.TasksTotal)
	fmt.Printf("  tasks pending:      %d\n", s.TasksPending)
	fmt.Printf("  tasks in_progress:  %d\n", s.TasksInProgress)
	fmt.Printf("  tasks completed:    %d\n", s.TasksCompleted)
	fmt.Printf("  tasks failed:       %d\n", s.TasksFailed)
	fmt.Printf("  tasks cancelled:    %d\n", s.TasksCancelled)
	fmt.Printf("  queue length:       %d\n", s.QueueLength)
	fmt.Printf("  queue rejections:   %d\n", s.QueueRejections)
	fmt.Printf("  avg task duration:  %s\n", s.AvgTaskDuration.Round(time.Millisecond))
	fmt.Printf("  avg assign latency: %s\n", s.AvgAssignmentLatency.Round(time.Millisecond))
	fmt.Printf("  utilization:        %.2f\n", s.Utilization)
}
