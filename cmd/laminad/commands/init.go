package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/laminastore/lamina/internal/config"
)

var (
	initForce    bool
	initDataDir  string
	initMetaMode string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample lamina configuration file populated with defaults.

By default, the configuration file is created at
$XDG_CONFIG_HOME/lamina/config.yaml. Use --config to specify a custom
path.

Examples:
  # Initialize with default location
  laminad init --data-directory /srv/lamina/data

  # Initialize with custom path and metadata mode
  laminad init --config /etc/lamina/config.yaml --metadata-mode Inline`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().StringVar(&initDataDir, "data-directory", "", "data directory for object content (required)")
	initCmd.Flags().StringVar(&initMetaMode, "metadata-mode", string(config.MetadataModeSeparateDirectory), "metadata backend mode")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initDataDir == "" {
		return fmt.Errorf("--data-directory is required")
	}

	path := GetConfigFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := &config.Config{
		DataDirectory: initDataDir,
		MetadataMode:  config.MetadataMode(initMetaMode),
	}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("generated config failed validation: %w", err)
	}

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Printf("  2. Verify the engine with: laminad selftest --config %s\n", path)

	return nil
}
