package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/imagevault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":8443")
//	-d string   PostgreSQL DSN; empty selects the in-memory store
//	-k string   path to the hex-encoded pre-shared key
//	-m int      maximum encrypted record size, bytes
//	-n int      default batch size
//	-P          persist carts across sessions
//	-f string   feature-extraction service URL
//	-B string   blob backend: "dir" or "s3"
//	-D string   blob directory for the "dir" backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-m", "-n", "-P", "-f", "-B", "-D", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PSKFile, "k", config.PSKFile, "pre-shared key file")
	fs.Int64Var(&config.MaxMessageSize, "m", config.MaxMessageSize, "maximum encrypted record size in bytes")
	fs.IntVar(&config.DefaultBatchSize, "n", config.DefaultBatchSize, "default batch size")
	fs.BoolVar(&config.PersistCarts, "P", config.PersistCarts, "persist carts across sessions")
	fs.StringVar(&config.EmbeddingURL, "f", config.EmbeddingURL, "feature-extraction service URL")
	fs.StringVar(&config.BlobBackend, "B", config.BlobBackend, "blob backend (dir or s3)")
	fs.StringVar(&config.BlobDir, "D", config.BlobDir, "blob directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
