package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{orig[0]}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadDefaults(t *testing.T) {
	withArgs(t)
	cfg := LoadConfig()

	assert.Equal(t, ":8443", cfg.EndpointAddr)
	assert.Equal(t, "", cfg.DatabaseDSN)
	assert.Equal(t, int64(16<<20), cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.DefaultBatchSize)
	assert.False(t, cfg.PersistCarts)
	assert.Equal(t, "dir", cfg.BlobBackend)
}

func TestJsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"endpoint_addr": ":9000",
		"database_dsn": "postgres://localhost/imagevault",
		"io_timeout": "90s",
		"persist_carts": true,
		"blob_backend": "s3"
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	withArgs(t, "-c", path)
	cfg := LoadConfig()

	assert.Equal(t, ":9000", cfg.EndpointAddr)
	assert.Equal(t, "postgres://localhost/imagevault", cfg.DatabaseDSN)
	assert.Equal(t, 90*time.Second, cfg.IOTimeout)
	assert.True(t, cfg.PersistCarts)
	assert.Equal(t, "s3", cfg.BlobBackend)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, "psk.hex", cfg.PSKFile)
	assert.Equal(t, 10, cfg.DefaultBatchSize)
}

func TestFlagsOverrideJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"endpoint_addr": ":9000"}`), 0o600))

	withArgs(t, "-c", path, "-a", ":9100", "-n", "25", "-B", "s3")
	cfg := LoadConfig()

	assert.Equal(t, ":9100", cfg.EndpointAddr)
	assert.Equal(t, 25, cfg.DefaultBatchSize)
	assert.Equal(t, "s3", cfg.BlobBackend)
}
