package config

import (
	"fmt"
	"strings"
	"time"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Config represents the entire user configuration file
type Config struct {
	Version   int              `yaml:"version" toml:"version"`
	Transport *TransportConfig `yaml:"transport" toml:"transport"`
	Link      *LinkConfig      `yaml:"link" toml:"link"`
	Log       *LogConfig       `yaml:"log,omitempty" toml:"log,omitempty"`
	Bridge    *BridgeConfig    `yaml:"bridge,omitempty" toml:"bridge,omitempty"`
	Capture   *CaptureConfig   `yaml:"capture,omitempty" toml:"capture,omitempty"`
	Nodes     map[string]*Node `yaml:"nodes,omitempty" toml:"nodes,omitempty"` // Keyed by 64-bit address
}

// TransportConfig selects and configures the connection to the local module
type TransportConfig struct {
	Kind        string   `yaml:"kind" toml:"kind"`                                     // serial, tcp or websocket
	Mode        string   `yaml:"mode" toml:"mode"`                                     // api or api-escaped (AP=1 / AP=2)
	Port        string   `yaml:"port,omitempty" toml:"port,omitempty"`                 // Serial device, e.g. /dev/ttyUSB0
	BaudRate    int      `yaml:"baud_rate,omitempty" toml:"baud_rate,omitempty"`       // Serial speed
	ReadTimeout Duration `yaml:"read_timeout,omitempty" toml:"read_timeout,omitempty"` // Serial read poll interval
	Address     string   `yaml:"address,omitempty" toml:"address,omitempty"`           // TCP host:port
	DialTimeout Duration `yaml:"dial_timeout,omitempty" toml:"dial_timeout,omitempty"` // TCP connect timeout
	URL         string   `yaml:"url,omitempty" toml:"url,omitempty"`                   // WebSocket ws:// or wss:// URL
}

// LinkConfig tunes request/response handling
type LinkConfig struct {
	ResponseTimeout   Duration `yaml:"response_timeout" toml:"response_timeout"`       // Default wait for a correlated reply
	OpenAttempts      int      `yaml:"open_attempts" toml:"open_attempts"`             // Transport open attempts before giving up
	OpenDelay         Duration `yaml:"open_delay" toml:"open_delay"`                   // Delay between open attempts
	ListenerQueueSize int      `yaml:"listener_queue_size" toml:"listener_queue_size"` // Per-listener event queue
}

// LogConfig configures logging; the --log-level flag and XBEE_LOG_LEVEL take precedence
type LogConfig struct {
	Level string `yaml:"level,omitempty" toml:"level,omitempty"`
}

// BridgeConfig configures the WebSocket bridge served by "xbeectl bridge"
type BridgeConfig struct {
	Listen      string `yaml:"listen" toml:"listen"`                                 // host:port
	Path        string `yaml:"path" toml:"path"`                                     // WebSocket endpoint
	Advertise   bool   `yaml:"advertise" toml:"advertise"`                           // Announce over mDNS
	ServiceName string `yaml:"service_name,omitempty" toml:"service_name,omitempty"` // mDNS instance name
	CertPath    string `yaml:"cert_path,omitempty" toml:"cert_path,omitempty"`       // Serve wss:// when set with KeyPath
	KeyPath     string `yaml:"key_path,omitempty" toml:"key_path,omitempty"`
}

// CaptureConfig configures the JSONL frame recorder
type CaptureConfig struct {
	Dir string `yaml:"dir,omitempty" toml:"dir,omitempty"`
}

// Node is user-defined metadata for a remote module, keyed by its 64-bit address
type Node struct {
	Nickname  string    `yaml:"nickname,omitempty" toml:"nickname,omitempty"`
	Address16 string    `yaml:"address16,omitempty" toml:"address16,omitempty"` // Last known 16-bit address
	LastSeen  time.Time `yaml:"last_seen,omitempty" toml:"last_seen,omitempty"`
}

// Duration is a time.Duration written as "2s" in config files
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Default creates a Config with default values
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Transport: &TransportConfig{
			Kind:        "serial",
			Mode:        "api",
			Port:        defaultSerialPort(),
			BaudRate:    9600,
			ReadTimeout: Duration(200 * time.Millisecond),
			DialTimeout: Duration(6 * time.Second),
		},
		Link: &LinkConfig{
			ResponseTimeout:   Duration(2 * time.Second),
			OpenAttempts:      3,
			OpenDelay:         Duration(time.Second),
			ListenerQueueSize: 64,
		},
		Log: &LogConfig{},
		Bridge: &BridgeConfig{
			Listen:      ":9750",
			Path:        "/xbee",
			ServiceName: "xbeectl",
		},
		Capture: &CaptureConfig{},
		Nodes:   make(map[string]*Node),
	}
}

// fillDefaults restores sections missing from a loaded file
func (c *Config) fillDefaults() {
	def := Default()
	if c.Transport == nil {
		c.Transport = def.Transport
	}
	if c.Link == nil {
		c.Link = def.Link
	}
	if c.Log == nil {
		c.Log = def.Log
	}
	if c.Bridge == nil {
		c.Bridge = def.Bridge
	}
	if c.Capture == nil {
		c.Capture = def.Capture
	}
	if c.Nodes == nil {
		c.Nodes = make(map[string]*Node)
	}
}

// EnsureNode returns the node entry for a 64-bit address, creating it if needed
func (c *Config) EnsureNode(addr64 string) *Node {
	if c.Nodes == nil {
		c.Nodes = make(map[string]*Node)
	}
	key := strings.ToUpper(addr64)
	if node, exists := c.Nodes[key]; exists {
		return node
	}
	node := &Node{}
	c.Nodes[key] = node
	return node
}

// GetNode returns the node entry for a 64-bit address, or nil
func (c *Config) GetNode(addr64 string) *Node {
	return c.Nodes[strings.ToUpper(addr64)]
}

// UpdateNodeSeen records when a node was last heard from and its 16-bit address
func (c *Config) UpdateNodeSeen(addr64, addr16 string, at time.Time) {
	node := c.EnsureNode(addr64)
	node.LastSeen = at
	node.Address16 = addr16
}

// SetNodeNickname sets a user-friendly nickname for a node
func (c *Config) SetNodeNickname(addr64, nickname string) {
	c.EnsureNode(addr64).Nickname = nickname
}

// NodeLabel returns the nickname of a node, or the address when none is set
func (c *Config) NodeLabel(addr64 string) string {
	if node := c.GetNode(addr64); node != nil && node.Nickname != "" {
		return node.Nickname
	}
	return strings.ToUpper(addr64)
}
