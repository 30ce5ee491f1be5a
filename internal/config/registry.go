package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/transport"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "xbeeapi"
	configFile = "config.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// Format is the on-disk encoding of a config file
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatForPath picks the encoding from the file extension; anything but .toml is YAML
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/xbeeapi or $HOME/.config/xbeeapi
//   - macOS: $HOME/.config/xbeeapi
//   - Windows: %LOCALAPPDATA%\xbeeapi
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// resolvePath returns path, or the default config path when path is empty
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	p, err := GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return p, nil
}

func defaultSerialPort() string {
	switch runtime.GOOS {
	case "windows":
		return "COM3"
	case "darwin":
		return "/dev/tty.usbserial"
	default:
		return "/dev/ttyUSB0"
	}
}

// Load reads the configuration file at path (or the default path when empty).
// A missing file yields Default(). Sections absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	configPath, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Decode(data, FormatForPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// Decode parses config data in the given format and validates its version
func Decode(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	cfg.fillDefaults()
	return &cfg, nil
}

// Encode serialises the config in the given format
func (c *Config) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return yaml.Marshal(c)
	}
}

// Save writes the config to path (or the default path when empty).
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	configPath, err := resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Encode(FormatForPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# xbeeapi Configuration File
# Connection settings for the local XBee module and user-defined
# nicknames for remote nodes.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("version: unsupported value %d", c.Version))
	}

	if t := c.Transport; t == nil {
		errs = append(errs, errors.New("transport: section missing"))
	} else {
		if _, err := codec.ParseMode(t.Mode); err != nil {
			errs = append(errs, fmt.Errorf("transport.mode: %w", err))
		}
		switch transport.Kind(t.Kind) {
		case transport.KindSerial:
			if t.Port == "" {
				errs = append(errs, errors.New("transport.port: required for serial transport"))
			}
			if t.BaudRate < 0 {
				errs = append(errs, fmt.Errorf("transport.baud_rate: must be positive, got %d", t.BaudRate))
			}
		case transport.KindTCP:
			if t.Address == "" {
				errs = append(errs, errors.New("transport.address: required for tcp transport"))
			}
		case transport.KindWebSocket:
			if t.URL == "" {
				errs = append(errs, errors.New("transport.url: required for websocket transport"))
			}
		default:
			errs = append(errs, fmt.Errorf("transport.kind: unknown value %q (expected serial, tcp or websocket)", t.Kind))
		}
	}

	if l := c.Link; l != nil {
		if l.ResponseTimeout < 0 {
			errs = append(errs, errors.New("link.response_timeout: must not be negative"))
		}
		if l.OpenAttempts < 0 {
			errs = append(errs, errors.New("link.open_attempts: must not be negative"))
		}
		if l.ListenerQueueSize < 0 {
			errs = append(errs, errors.New("link.listener_queue_size: must not be negative"))
		}
	}

	if b := c.Bridge; b != nil {
		if b.Path != "" && !strings.HasPrefix(b.Path, "/") {
			errs = append(errs, fmt.Errorf("bridge.path: must start with '/', got %q", b.Path))
		}
		if (b.CertPath == "") != (b.KeyPath == "") {
			errs = append(errs, errors.New("bridge: cert_path and key_path must be set together"))
		}
	}

	return errors.Join(errs...)
}

// OperatingMode returns the configured frame encoding
func (c *Config) OperatingMode() (codec.Mode, error) {
	return codec.ParseMode(c.Transport.Mode)
}

// TransportOptions converts the transport section for transport.New
func (c *Config) TransportOptions() transport.Options {
	t := c.Transport
	return transport.Options{
		Kind:        transport.Kind(t.Kind),
		Port:        t.Port,
		BaudRate:    t.BaudRate,
		ReadTimeout: t.ReadTimeout.Std(),
		Address:     t.Address,
		DialTimeout: t.DialTimeout.Std(),
		URL:         t.URL,
	}
}

// CreateDefaultConfig writes a default configuration file to path (or the default path)
// and returns the path written.
func CreateDefaultConfig(path string) (string, error) {
	configPath, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}
	return configPath, Default().Save(configPath)
}
