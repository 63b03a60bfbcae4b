// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the ImageVault server.
//
// Fields:
//   - EndpointAddr: TCP bind address for the encrypted catalog endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - PSKFile: path to the hex-encoded 32-byte pre-shared key.
//   - HandshakeTimeout: deadline for completing the key exchange.
//   - IOTimeout: per-exchange read/write deadline on established sessions.
//   - MaxMessageSize: upper bound for a single encrypted record, bytes.
//   - DefaultBatchSize: batch size used when a NextBatch request passes 0.
//   - PersistCarts: write carts through to the store so they survive the
//     session. Off by default.
//   - EmbeddingURL: feature-extraction service endpoint. Empty selects the
//     deterministic built-in embedder.
//   - BlobBackend: "dir" or "s3".
//   - BlobDir: directory for the "dir" backend.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	EndpointAddr     string
	DatabaseDSN      string
	PSKFile          string
	HandshakeTimeout time.Duration
	IOTimeout        time.Duration
	EmbeddingTimeout time.Duration
	MaxMessageSize   int64
	DefaultBatchSize int
	PersistCarts     bool
	EmbeddingURL     string
	BlobBackend      string
	BlobDir          string
	S3RootUser       string
	S3RootPassword   string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8443"
	c.DatabaseDSN = ""
	c.PSKFile = "psk.hex"
	c.HandshakeTimeout = 10 * time.Second
	c.IOTimeout = 5 * time.Minute
	c.EmbeddingTimeout = 30 * time.Second
	c.MaxMessageSize = 16 << 20
	c.DefaultBatchSize = 10
	c.PersistCarts = false
	c.EmbeddingURL = ""
	c.BlobBackend = "dir"
	c.BlobDir = "blobs"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "imagevault"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
