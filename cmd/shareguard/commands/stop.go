package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var stopPidFile string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a background ShareGuard server",
	Long: `Stop sends SIGTERM to the PID recorded in the PID file and waits
briefly for the process to exit, falling back to SIGKILL if it does not.

Examples:
  shareguard stop
  shareguard stop --pid-file /var/run/shareguard.pid`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/shareguard/shareguard.pid)")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		return fmt.Errorf("no PID file found at %s (is ShareGuard running?)", pidPath)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return fmt.Errorf("invalid PID file at %s: %w", pidPath, err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	fmt.Printf("Sent shutdown signal to ShareGuard (PID %d)\n", pid)

	for i := 0; i < 20; i++ {
		time.Sleep(250 * time.Millisecond)
		if process.Signal(syscall.Signal(0)) != nil {
			fmt.Println("ShareGuard stopped")
			_ = os.Remove(pidPath)
			return nil
		}
	}

	fmt.Println("ShareGuard did not stop within 5s, sending SIGKILL")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	_ = os.Remove(pidPath)
	return nil
}
