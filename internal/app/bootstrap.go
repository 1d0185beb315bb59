package app

import (
	"log/slog"

	"altbot/internal/infra"
	"altbot/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the config file and performs core system initialization.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	return b.Setup(cfg)
}

// Setup installs the logger and opens the run store for an already-loaded config.
func (b *Bootstrap) Setup(cfg *infra.Config) error {
	b.Config = cfg

	// 1. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping altbot...", slog.String("version", cfg.App.Version))

	// 2. Initialize Storage (DB). An empty path runs without history.
	if cfg.Storage.Path != "" {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		slog.Info("✅ Run store initialized", slog.String("path", cfg.Storage.Path))
	}
	return nil
}

// Close releases the run store.
func (b *Bootstrap) Close() error {
	if b.Storage == nil {
		return nil
	}
	return b.Storage.Close()
}
