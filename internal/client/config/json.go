package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/flagx"
	"github.com/dmitrijs2005/imagevault/internal/timex"
)

// JsonConfig is the JSON-file DTO for the client Config. Durations accept
// both strings such as "10s" and integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	PSKFile            string         `json:"psk_file"`
	DialTimeout        timex.Duration `json:"dial_timeout"`
}

// parseJson loads configuration from the file named by -c/-config, when
// given. A field absent from the file keeps its current value.
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

	if c.ServerEndpointAddr != "" {
		config.ServerEndpointAddr = c.ServerEndpointAddr
	}
	if c.PSKFile != "" {
		config.PSKFile = c.PSKFile
	}
	if c.DialTimeout.Duration != 0 {
		config.DialTimeout = time.Duration(c.DialTimeout.Duration)
	}
}
