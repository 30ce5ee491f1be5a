// Xbeectl talks to XBee modules running in API mode.
//
// It decodes and encodes API frames offline, monitors live traffic from a
// module attached over serial, TCP or WebSocket, issues AT commands and
// transmit requests, and shares one module with remote clients through a
// WebSocket bridge.
//
// Usage:
//
//	xbeectl [command] [flags]
//
// See 'xbeectl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/config"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/version"
)

// Global flags and the configuration they resolve to
var (
	configPath string
	logLevel   string

	cfg *config.Config
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "xbeectl",
	Short: "XBee API mode toolkit",
	Long: `A command line toolkit for XBee modules running in API mode.

Decodes and encodes API frames, monitors live traffic, sends AT commands
and transmit requests, and bridges a local module to WebSocket clients.

Connection settings come from the configuration file (see 'xbeectl config
path') and can be overridden per invocation with --transport, --serial-port,
--address, --url and --mode.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the per-user config path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("xbeectl %s (commit: %s)\n", version.Version, version.Commit)
	},
}

// loadConfig reads the configuration file, applies connection flag overrides
// and initializes logging. The --log-level flag wins over XBEE_LOG_LEVEL,
// which wins over the log.level config setting.
func loadConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded
	applyConnectionFlags(cmd)

	level := logLevel
	if level == "" {
		level = os.Getenv(logging.LogLevelEnvVar)
	}
	if level == "" && cfg.Log != nil {
		level = cfg.Log.Level
	}
	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}
