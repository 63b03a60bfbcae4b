// Package server initializes and runs the catalog server: storage backends,
// the blob store, the feature-extraction client, the TCP listener, and
// graceful shutdown on OS signals.
package server

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/protocol"
	"github.com/dmitrijs2005/imagevault/internal/server/blob"
	"github.com/dmitrijs2005/imagevault/internal/server/catalog"
	"github.com/dmitrijs2005/imagevault/internal/server/config"
	"github.com/dmitrijs2005/imagevault/internal/server/embedding"
	"github.com/dmitrijs2005/imagevault/internal/server/query"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/imagevault/internal/server/session"
)

type App struct {
	config *config.Config
	logger logging.Logger
	srv    *TCPServer
	rm     repomanager.RepositoryManager
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rm, err := newRepositoryManager(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	var embedder embedding.Embedder
	if cfg.EmbeddingURL != "" {
		embedder = embedding.NewHTTPEmbedder(cfg.EmbeddingURL, cfg.EmbeddingTimeout)
	} else {
		embedder = &embedding.FakeEmbedder{}
	}

	psk, err := loadPSK(ctx, cfg.PSKFile, logger)
	if err != nil {
		return nil, fmt.Errorf("psk init error: %w", err)
	}

	store := catalog.NewStore(rm, nil)
	engine := query.NewEngine(store, blobs, embedder)
	opts := session.Options{
		PersistCarts:     cfg.PersistCarts,
		DefaultBatchSize: cfg.DefaultBatchSize,
	}

	srv := NewTCPServer(cfg.EndpointAddr, psk, logger, store, engine, blobs, embedder, opts,
		cfg.HandshakeTimeout, cfg.IOTimeout, cfg.MaxMessageSize)

	return &App{config: cfg, logger: logger, srv: srv, rm: rm}, nil
}

func newRepositoryManager(ctx context.Context, cfg *config.Config) (repomanager.RepositoryManager, error) {
	if cfg.DatabaseDSN == "" {
		return repomanager.NewInMemoryRepositoryManager(), nil
	}
	rm, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx); err != nil {
		rm.Close()
		return nil, err
	}
	return rm, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "dir":
		return blob.NewDirStore(cfg.BlobDir)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Options{
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// loadPSK reads the hex-encoded pre-shared key. On first run the file does
// not exist yet; a fresh key is generated and written so client and server
// operators can copy it from one place.
func loadPSK(ctx context.Context, path string, logger logging.Logger) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		generated, genErr := common.MakeRandHexString(protocol.PSKSize)
		if genErr != nil {
			return nil, genErr
		}
		if writeErr := os.WriteFile(path, []byte(generated+"\n"), 0o600); writeErr != nil {
			return nil, writeErr
		}
		logger.Warn(ctx, "generated new pre-shared key", "path", path)
		data = []byte(generated)
	} else if err != nil {
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

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.srv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.rm.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
}
