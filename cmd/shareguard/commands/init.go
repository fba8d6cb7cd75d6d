package commands

import (
	"fmt"
	"os"

	"github.com/shareguard/shareguard/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample ShareGuard configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/shareguard/config.yaml. Use --config to specify a custom
path.

Examples:
  # Initialize with default location
  shareguard init

  # Initialize with custom path
  shareguard init --config /etc/shareguard/config.yaml

  # Force overwrite existing config
  shareguard init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to point at the database and watched paths")
	fmt.Println("  2. Run migrations: shareguard migrate")
	fmt.Println("  3. Start the server: shareguard serve")
	fmt.Println("\nAuthentication:")
	fmt.Println("  auth.enabled defaults to false (local development only).")
	fmt.Println("  For production, set auth.enabled: true and auth.jwks_url to your")
	fmt.Println("  identity provider's JWKS endpoint -- ShareGuard never issues its own tokens.")

	return nil
}
