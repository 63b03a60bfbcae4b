package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/imagevault/internal/flagx"
)

// parseFlags populates client Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   server address (host:port)
//	-k string   path to the hex-encoded pre-shared key
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "server address")
	fs.StringVar(&config.PSKFile, "k", config.PSKFile, "pre-shared key file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
