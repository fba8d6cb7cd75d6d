package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shareguard/shareguard/internal/config"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
	statusAddr    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show control plane server status",
	Long: `Status checks the PID file and the /health/ready endpoint and reports
whether the ShareGuard server is running and whether its store is
reachable.

Examples:
  shareguard status
  shareguard status --addr localhost:9090
  shareguard status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/shareguard/shareguard.pid)")
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "API server address to health-check (default: from config's api.listen_addr)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json)")
}

// serverStatus is the CLI's view of whether the server is alive and healthy.
type serverStatus struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := serverStatus{Message: "server is not running"}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}
	if pidData, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(pidData))); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	addr := statusAddr
	if addr == "" {
		addr = defaultHealthAddr()
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/health/ready", addr))
	if err == nil {
		defer func() { _ = resp.Body.Close() }()
		var body map[string]any
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			status.Running = true
			if s, _ := body["status"].(string); s == "healthy" {
				status.Healthy = true
				status.Message = "server is running and healthy"
			} else {
				status.Message = fmt.Sprintf("server is running but unhealthy: %v", body["error"])
			}
		}
	} else if status.Running {
		status.Message = "server process exists but health check failed"
	}

	if statusOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Println()
	fmt.Println("ShareGuard Server Status")
	fmt.Println("========================")
	fmt.Println()
	if status.Running {
		if status.Healthy {
			fmt.Println("  Status: Running (healthy)")
		} else {
			fmt.Println("  Status: Running (unhealthy)")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:    %d\n", status.PID)
		}
	} else {
		fmt.Println("  Status: Stopped")
	}
	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()

	return nil
}

// defaultHealthAddr falls back to config's api.listen_addr, stripping a
// leading ":" since an empty host means localhost for an HTTP GET.
func defaultHealthAddr() string {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return "localhost:8080"
	}
	addr := cfg.API.ListenAddr
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	if addr == "" {
		return "localhost:8080"
	}
	return addr
}
