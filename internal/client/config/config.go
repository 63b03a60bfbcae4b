// Package config handles configuration for the client component.
package config

import "time"

// Config holds runtime settings for the ImageVault CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the catalog server.
//   - PSKFile: path to the hex-encoded pre-shared key shared with the server.
//   - DialTimeout: covers connection establishment and handshake.
type Config struct {
	ServerEndpointAddr string
	PSKFile            string
	DialTimeout        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:8443"
	c.PSKFile = "psk.hex"
	c.DialTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
