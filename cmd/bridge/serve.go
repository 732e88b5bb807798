package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/bridge/pkg/broadcast"
	"github.com/cuemby/bridge/pkg/configs"
	"github.com/cuemby/bridge/pkg/dispatch"
	"github.com/cuemby/bridge/pkg/host"
	"github.com/cuemby/bridge/pkg/log"
	"github.com/cuemby/bridge/pkg/metrics"
	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/server"
	"github.com/cuemby/bridge/pkg/subscribers"
)

// ServeConfig is the YAML configuration for the serve command. Flags
// override file values, file values override defaults.
type ServeConfig struct {
	Port           int    `yaml:"port"`
	MetricsAddr    string `yaml:"metricsAddr"`
	Workspace      string `yaml:"workspace"`
	OutputCapacity int    `yaml:"outputCapacity"`
	LogLevel       string `yaml:"logLevel"`
	JSONLog        bool   `yaml:"jsonLog"`
	WebhookTimeout string `yaml:"webhookTimeout"`
}

func defaultServeConfig() ServeConfig {
	return ServeConfig{
		Port:           server.DefaultPort,
		MetricsAddr:    "127.0.0.1:9486",
		OutputCapacity: output.DefaultCapacity,
		LogLevel:       "info",
		WebhookTimeout: "10s",
	}
}

func loadServeConfig(path string) (ServeConfig, error) {
	cfg := defaultServeConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge server",
	Long: `Run the bridge TCP server on 127.0.0.1.

The server accepts one JSON request per connection, dispatches it against
the command table, writes one JSON response and closes. Prometheus metrics
and a health endpoint are served separately on the metrics address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadServeConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}
		if cmd.Flags().Changed("workspace") {
			cfg.Workspace, _ = cmd.Flags().GetString("workspace")
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("json-log") {
			cfg.JSONLog, _ = cmd.Flags().GetBool("json-log")
		}

		return runServe(cfg)
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().Int("port", server.DefaultPort, "TCP port to listen on")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9486", "Address for /metrics and /healthz")
	serveCmd.Flags().String("workspace", "", "Workspace root path (defaults to current directory)")
	serveCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("json-log", false, "Emit JSON logs instead of console output")
}

func runServe(cfg ServeConfig) error {
	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.JSONLog,
	})
	metrics.SetVersion(Version)
	logger := log.WithComponent("serve")

	workspace := cfg.Workspace
	if workspace == "" {
		workspace, _ = os.Getwd()
	}

	webhookTimeout, err := time.ParseDuration(cfg.WebhookTimeout)
	if err != nil {
		return fmt.Errorf("invalid webhookTimeout %q: %w", cfg.WebhookTimeout, err)
	}

	out := output.NewBuffer(cfg.OutputCapacity)
	registry := subscribers.NewRegistry()
	bc := broadcast.New(registry, out, broadcast.WithTimeout(webhookTimeout))

	h := host.New(workspace)
	h.SetPublisher(bc)

	cm, err := configs.NewManager(out, bc)
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}
	defer cm.Close()

	dispatcher := dispatch.NewDispatcher(h, registry, out, dispatch.Options{
		Configs: cm,
		Restart: restartProcess,
	})

	srv := server.New(cfg.Port, dispatcher, out)
	if err := srv.Start(); err != nil {
		if errors.Is(err, server.ErrPortInUse) {
			fmt.Fprintf(os.Stderr, "Port %d is already in use.\n", cfg.Port)
			fmt.Fprintf(os.Stderr, "Find the holder with: lsof -i :%d\n", cfg.Port)
		}
		return err
	}

	// Metrics and health endpoints on their own listener
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.NewServeMux()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server error")
		}
	}()

	fmt.Printf("Bridge listening on 127.0.0.1:%d (metrics on %s)\n", srv.Port(), cfg.MetricsAddr)
	fmt.Println("Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	srv.Stop()
	metricsServer.Close()
	fmt.Println("✓ Shutdown complete")
	return nil
}

// restartProcess replaces the current process with a fresh copy of itself.
// Runs after the restartExtension response has been written and its
// connection closed, so the acknowledgement always reaches the client.
func restartProcess() {
	exe, err := os.Executable()
	if err != nil {
		log.Errorf("failed to resolve executable for restart", err)
		os.Exit(1)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Errorf("failed to re-exec for restart", err)
		os.Exit(1)
	}
}
