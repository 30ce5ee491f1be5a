// Package config provides user configuration management for xbeeapi.
//
// The configuration file selects the transport to the local module (serial
// port, TCP bridge or WebSocket bridge), its operating mode, request timeouts
// and the settings of the bridge and capture commands. It also stores
// user-defined nicknames for remote nodes, keyed by 64-bit address.
//
// Files ending in .toml are read and written as TOML; everything else is YAML.
//
// # Configuration File Location
//
// The default configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/xbeeapi/config.yaml or $HOME/.config/xbeeapi/config.yaml
//   - macOS: $HOME/.config/xbeeapi/config.yaml
//   - Windows: %LOCALAPPDATA%\xbeeapi\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg.SetNodeNickname("0013A20040A1B2C3", "Greenhouse")
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Save is protected by a mutex and writes atomically via a temporary file.
// A Config value itself is not safe for concurrent mutation.
package config
