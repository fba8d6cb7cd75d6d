// Command shareguard runs the ShareGuard control plane: the ACL Scanner,
// Change Monitor, Health Analyzer, Notification Service, and the
// REST/WebSocket API that fronts them.
package main

import (
	"fmt"
	"os"

	"github.com/shareguard/shareguard/cmd/shareguard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
