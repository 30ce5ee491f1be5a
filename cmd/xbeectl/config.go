package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/xbeeapi/internal/config"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"github.com/muurk/xbeeapi/internal/transport"
	"github.com/muurk/xbeeapi/internal/ui"
)

// Config command flags
var (
	configForce  bool
	configFormat string

	// configLoadErr holds the load failure so that "config init" and
	// "config path" still work with a broken file
	configLoadErr error
)

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "", "Output format (yaml or toml; default matches the file)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configNicknameCmd)
	configCmd.AddCommand(configNodesCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(portsCmd)
}

// configCmd manages the configuration file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the xbeectl configuration file.

The file holds the connection to the local module, link tuning, bridge
settings and nicknames for remote nodes. YAML is used unless the file name
ends in .toml.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			configLoadErr = err
			cfg = config.Default()
			return logging.Initialize(logLevel)
		}
		return nil
	},
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Example: `  xbeectl config init
  xbeectl config init --config ./xbee.toml
  xbeectl config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			path string
			err  error
		)
		if configForce {
			if path, err = resolvedConfigPath(); err == nil {
				err = config.Default().Save(path)
			}
		} else {
			path, err = config.CreateDefaultConfig(configPath)
		}
		if err != nil {
			return err
		}
		fmt.Println(ui.RenderSuccess("Config created", map[string]string{"Path": path}))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration as loaded, with defaults filled in and
connection flags such as --serial-port applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configLoadErr != nil {
			return configLoadErr
		}

		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		format := config.FormatForPath(path)
		switch configFormat {
		case "":
		case "yaml", "yml":
			format = config.FormatYAML
		case "toml":
			format = config.FormatTOML
		default:
			return fmt.Errorf("unknown format %q (expected yaml or toml)", configFormat)
		}

		data, err := cfg.Encode(format)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		if configLoadErr == nil {
			configLoadErr = cfg.Validate()
		}
		if configLoadErr != nil {
			fmt.Println(ui.RenderFailure("Config invalid", configLoadErr, []string{
				"Edit " + path,
				"Or recreate it with 'xbeectl config init --force'",
			}))
			return errors.New("invalid configuration")
		}
		fmt.Println(ui.RenderSuccess("Config valid", map[string]string{
			"Path":      path,
			"Transport": cfg.Transport.Kind,
			"Mode":      cfg.Transport.Mode,
		}))
		return nil
	},
}

var configNicknameCmd = &cobra.Command{
	Use:   "nickname <address64> [name]",
	Short: "Name a remote node",
	Long: `Set the nickname shown for a remote node by 'xbeectl monitor'.
Omit the name to clear it.`,
	Example: `  xbeectl config nickname 0013A20040A1B2C3 greenhouse
  xbeectl config nickname 0013A20040A1B2C3`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if configLoadErr != nil {
			return configLoadErr
		}
		addr, err := packet.ParseAddr64(args[0])
		if err != nil {
			return err
		}
		var name string
		if len(args) > 1 {
			name = args[1]
		}

		// Reload so connection flag overrides are not written back.
		stored, err := config.Load(configPath)
		if err != nil {
			return err
		}
		stored.SetNodeNickname(addr.String(), name)
		if err := stored.Save(configPath); err != nil {
			return err
		}

		fmt.Println(ui.RenderSuccess("Node updated", map[string]string{
			"Address":  addr.String(),
			"Nickname": name,
		}))
		return nil
	},
}

var configNodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List known remote nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configLoadErr != nil {
			return configLoadErr
		}
		if len(cfg.Nodes) == 0 {
			fmt.Println("No nodes recorded. Use 'xbeectl monitor --remember' or 'xbeectl config nickname'.")
			return nil
		}

		addrs := make([]string, 0, len(cfg.Nodes))
		for addr := range cfg.Nodes {
			addrs = append(addrs, addr)
		}
		slices.Sort(addrs)

		for _, addr := range addrs {
			node := cfg.Nodes[addr]
			lastSeen := "never"
			if !node.LastSeen.IsZero() {
				lastSeen = node.LastSeen.Format(time.RFC3339)
			}
			fmt.Printf("%s  %-20s  16-bit: %-4s  last seen: %s\n",
				addr, cfg.NodeLabel(addr), node.Address16, lastSeen)
		}
		return nil
	},
}

// portsCmd lists serial ports
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return nil
		}
		for _, p := range ports {
			marker := " "
			if cfg.Transport != nil && cfg.Transport.Port == p {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, p)
		}
		return nil
	},
}
