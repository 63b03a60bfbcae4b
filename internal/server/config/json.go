package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/flagx"
	"github.com/dmitrijs2005/imagevault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, set fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr     string         `json:"endpoint_addr"`
	DatabaseDSN      string         `json:"database_dsn"`
	PSKFile          string         `json:"psk_file"`
	HandshakeTimeout timex.Duration `json:"handshake_timeout"`
	IOTimeout        timex.Duration `json:"io_timeout"`
	EmbeddingTimeout timex.Duration `json:"embedding_timeout"`
	MaxMessageSize   int64          `json:"max_message_size"`
	DefaultBatchSize int            `json:"default_batch_size"`
	PersistCarts     *bool          `json:"persist_carts"`
	EmbeddingURL     string         `json:"embedding_url"`
	BlobBackend      string         `json:"blob_backend"`
	BlobDir          string         `json:"blob_dir"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. A field absent from the file
// keeps its current (default) value. An unreadable file or invalid JSON
// panics: starting with half-applied configuration is worse than not
// starting.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.PSKFile != "" {
		config.PSKFile = c.PSKFile
	}
	if c.HandshakeTimeout.Duration != 0 {
		config.HandshakeTimeout = time.Duration(c.HandshakeTimeout.Duration)
	}
	if c.IOTimeout.Duration != 0 {
		config.IOTimeout = time.Duration(c.IOTimeout.Duration)
	}
	if c.EmbeddingTimeout.Duration != 0 {
		config.EmbeddingTimeout = time.Duration(c.EmbeddingTimeout.Duration)
	}
	if c.MaxMessageSize != 0 {
		config.MaxMessageSize = c.MaxMessageSize
	}
	if c.DefaultBatchSize != 0 {
		config.DefaultBatchSize = c.DefaultBatchSize
	}
	if c.PersistCarts != nil {
		config.PersistCarts = *c.PersistCarts
	}
	if c.EmbeddingURL != "" {
		config.EmbeddingURL = c.EmbeddingURL
	}
	if c.BlobBackend != "" {
		config.BlobBackend = c.BlobBackend
	}
	if c.BlobDir != "" {
		config.BlobDir = c.BlobDir
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
