package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/shareguard/shareguard/internal/config"
	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/controlplane"
	"github.com/shareguard/shareguard/pkg/controlplane/api"
	"github.com/shareguard/shareguard/pkg/monitor"
	"github.com/spf13/cobra"
)

var (
	serveForeground bool
	servePidFile    string
	serveLogFile    string
	serveWatchPaths []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ShareGuard control plane server",
	Long: `Serve starts the ACL Scanner, Change Monitor, Health Analyzer,
Notification Service, and the REST/WebSocket API that fronts them.

By default, the server runs in the background (daemon mode). Use
--foreground to run in the foreground for debugging or when managed by a
process supervisor.

Examples:
  # Start in background (default)
  shareguard serve

  # Start in foreground, watching two shares
  shareguard serve --foreground --watch C:\Shares\Finance --watch C:\Shares\HR`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVarP(&serveForeground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	serveCmd.Flags().StringVar(&servePidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/shareguard/shareguard.pid)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/shareguard/shareguard.log)")
	serveCmd.Flags().StringArrayVar(&serveWatchPaths, "watch", nil, "Path to watch for ACL drift (repeatable); can also be added later via the API")
}

func runServe(cmd *cobra.Command, args []string) error {
	if !serveForeground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("ShareGuard control plane starting",
		"config_source", getConfigSource(GetConfigFile()),
		"database_driver", cfg.Database.Driver,
		"listen_addr", cfg.API.ListenAddr,
		"auth_enabled", cfg.Auth.Enabled)

	dbConfig := toStoreConfig(cfg.Database)

	scanOpts := acl.Options{
		IncludeSubfolders: true,
		MaxDepth:          cfg.Scanner.MaxDepth,
		ExcludedPaths:     cfg.Scanner.ExcludedPaths,
	}

	cp, err := controlplane.New(ctx, &controlplane.Options{
		Database: &dbConfig,
		Scan:     scanOpts,
		Monitor: monitor.Options{
			CheckInterval: time.Duration(cfg.Monitor.CheckIntervalSeconds) * time.Second,
		},
		HealthDetectors:     cfg.Health.ToDetectorConfig(),
		NotifyQueueCapacity: cfg.Notify.QueueCapacity,
		API: &api.Config{
			ListenAddr:     cfg.API.ListenAddr,
			ReadTimeout:    cfg.API.ReadTimeout,
			WriteTimeout:   cfg.API.WriteTimeout,
			RequestTimeout: cfg.API.RequestTimeout,
			Auth: api.AuthConfig{
				Enabled:  cfg.Auth.Enabled,
				JWKSURL:  cfg.Auth.JWKSURL,
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize control plane: %w", err)
	}
	defer func() {
		if err := cp.Close(); err != nil {
			logger.Error("control plane shutdown error", "error", err)
		}
	}()

	if len(serveWatchPaths) > 0 {
		cp.Monitor().Start(serveWatchPaths...)
		logger.Info("change monitor started", "watched_paths", len(serveWatchPaths))
	} else {
		cp.Monitor().Start()
		logger.Info("change monitor started with an empty watch set; add paths via the API")
	}

	if servePidFile != "" {
		if err := os.WriteFile(servePidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(servePidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- cp.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server is running, press Ctrl+C to stop", "addr", cp.APIServer().Addr())

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}

// startDaemon re-execs the current binary with --foreground, detached from
// the controlling terminal, and writes its stdout/stderr to a log file.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := servePidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("ShareGuard is already running (PID %d)\nUse 'shareguard stop' to stop the running instance", pid)
					}
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := serveLogFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"serve", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}
	for _, p := range serveWatchPaths {
		daemonArgs = append(daemonArgs, "--watch", p)
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = logFileHandle.Close()

	fmt.Printf("ShareGuard started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'shareguard stop' to stop the server")
	fmt.Println("Use 'shareguard status' to check server status")

	return nil
}
