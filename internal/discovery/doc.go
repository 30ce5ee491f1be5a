// Package discovery advertises and finds xbeectl bridges with mDNS.
//
// A bridge started with advertising enabled registers itself as a
// "_xbee-api._tcp" service. TXT records carry the WebSocket path, the
// operating mode of the module behind it and whether TLS is used, so a
// client can build the bridge URL without further configuration.
//
// # Usage Example
//
//	bridges, err := discovery.ScanForBridges(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, b := range bridges {
//	    fmt.Println(b, b.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
