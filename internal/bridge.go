package internal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seowriter/zalo-bridge/internal/config"
	"github.com/seowriter/zalo-bridge/internal/crypto"
	"github.com/seowriter/zalo-bridge/internal/log"
	"github.com/seowriter/zalo-bridge/internal/server"
	"github.com/seowriter/zalo-bridge/internal/storage"
	"github.com/seowriter/zalo-bridge/internal/zalo"
)

// Bridge is the assembled login bridge application
type Bridge struct {
	config     config.Config
	httpServer *server.HTTPServer
	store      storage.Store
	cleanup    *storage.CleanupManager
}

// NewBridge creates the bridge with all dependencies built
func NewBridge(ctx context.Context, cfg config.Config) (*Bridge, error) {
	log.LogInfoWithFields("bridge", "Building login bridge", map[string]any{
		"role":    string(cfg.Role),
		"baseURL": cfg.BaseURL,
	})

	store, cleanup, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	envelope, err := crypto.NewEnvelopeCodec([]byte(cfg.RelaySecret), cfg.EnvelopeTTL.Duration())
	if err != nil {
		return nil, fmt.Errorf("failed to build envelope codec: %w", err)
	}
	stateToken := crypto.NewStateToken([]byte(cfg.RelaySecret), cfg.StateTTL.Duration())

	zaloClient := zalo.NewClient(cfg.Zalo.AppID, string(cfg.Zalo.AppSecret))
	if cfg.Zalo.AppID == "" {
		log.LogWarnWithFields("bridge", "Zalo app not configured; login endpoints will report it", nil)
	}

	origin := server.NewOriginHandlers(cfg, zaloClient, store, envelope)
	relay := server.NewRelayHandlers(cfg, zaloClient, store, envelope, stateToken)
	router := server.NewRouter(cfg, origin, relay)

	return &Bridge{
		config:     cfg,
		httpServer: server.NewHTTPServer(router, cfg.Addr),
		store:      store,
		cleanup:    cleanup,
	}, nil
}

// Run starts the bridge and blocks until ctx is cancelled or the server
// fails. Shutdown is graceful with a 30 second bound.
func (b *Bridge) Run(ctx context.Context) error {
	if b.cleanup != nil {
		b.cleanup.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := b.httpServer.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	})

	err := g.Wait()

	if b.cleanup != nil {
		b.cleanup.Stop()
	}
	if closeErr := b.store.Close(); closeErr != nil {
		log.LogErrorWithFields("bridge", "Failed to close store", map[string]any{
			"error": closeErr.Error(),
		})
	}

	log.LogInfoWithFields("bridge", "Shutdown complete", nil)
	return err
}

// setupStorage creates the state store from configuration. Memory stores get
// a periodic expiry sweep; redis relies on per-key TTLs.
func setupStorage(ctx context.Context, cfg config.Config) (storage.Store, *storage.CleanupManager, error) {
	ttls := storage.TTLConfig{
		LoginAttempt: cfg.StateTTL.Duration(),
		RelayState:   cfg.StateTTL.Duration(),
		StagedLogin:  cfg.StateTTL.Duration(),
	}

	if cfg.Storage.Kind == config.StorageRedis {
		log.LogInfoWithFields("storage", "Using redis storage", map[string]any{
			"addr": cfg.Storage.RedisAddr,
			"db":   cfg.Storage.RedisDB,
		})
		store, err := storage.NewRedisStore(ctx, cfg.Storage.RedisAddr, string(cfg.Storage.RedisPassword), cfg.Storage.RedisDB, ttls)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}

	log.LogInfoWithFields("storage", "Using in-memory storage", nil)
	store := storage.NewMemoryStore(ttls)
	return store, storage.NewCleanupManager(store, time.Minute), nil
}
