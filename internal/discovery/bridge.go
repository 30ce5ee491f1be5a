package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Bridge represents an xbeectl bridge discovered on the network
type Bridge struct {
	// Instance is the advertised service instance name (e.g., "greenhouse-gw")
	Instance string

	// Hostname is the mDNS hostname (e.g., "raspberrypi.local.")
	Hostname string

	// IP is the bridge address, IPv4 preferred
	IP string

	// Port is the WebSocket listen port
	Port int

	// Metadata contains the TXT record data: path, mode, tls, transport
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("XBee bridge %q (%s) at %s", b.Instance, b.Hostname, net.JoinHostPort(b.IP, strconv.Itoa(b.Port)))
}

// URL returns the WebSocket URL clients connect to
func (b *Bridge) URL() string {
	scheme := "ws"
	if b.GetMetadata("tls") == "1" {
		scheme = "wss"
	}
	path := b.GetMetadata("path")
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(b.IP, strconv.Itoa(b.Port)), path)
}

// Mode returns the advertised operating mode, or "" when not advertised
func (b *Bridge) Mode() string {
	return b.GetMetadata("mode")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
