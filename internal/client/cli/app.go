// Package cli is the interactive shell over the catalog protocol driver:
// it prompts for command input, calls the server, and prints the results.
package cli

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/imagevault/internal/client/config"
	"github.com/dmitrijs2005/imagevault/internal/client/driver"
	"github.com/dmitrijs2005/imagevault/internal/protocol"
)

type App struct {
	config   *config.Config
	client   *driver.Client
	userName string
	reader   *bufio.Reader
	out      *os.File
}

// NewApp reads the pre-shared key, dials the server, and returns a ready
// shell. The connection stays open for the whole interactive session.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	psk, err := loadPSK(c.PSKFile)
	if err != nil {
		return nil, err
	}

	client, err := driver.Dial(ctx, c.ServerEndpointAddr, psk, c.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.ServerEndpointAddr, err)
	}

	return &App{config: c, client: client, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func loadPSK(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	psk, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding psk: %w", err)
	}
	if len(psk) != protocol.PSKSize {
		return nil, fmt.Errorf("psk must be %d bytes, got %d", protocol.PSKSize, len(psk))
	}
	return psk, nil
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) status() string {
	if a.userName == "" {
		return "anonymous"
	}
	return a.userName
}

func (a *App) Run(ctx context.Context) {
	defer a.client.Close()
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}
