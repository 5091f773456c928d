package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BayRex1/bayrex-apk/internal/blob"
	"github.com/BayRex1/bayrex-apk/internal/config"
	"github.com/BayRex1/bayrex-apk/internal/session"
	"github.com/BayRex1/bayrex-apk/internal/store"
)

const (
	BlobFS     = "fs"
	BlobFTP    = "ftp"
	BlobMemory = "memory"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// OpenStore returns the record store selected by cfg.StoreDriver together
// with its database handle (nil for the memory store). Any failure falls
// back to the in-memory store so the server still starts.
func OpenStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.Store, *gorm.DB) {
	if cfg.StoreDriver == DriverMemory || cfg.StoreDriver == "" {
		log.Info("Using in-memory app store")
		return store.NewMemoryStore(), nil
	}

	db, err := Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("Database unavailable, falling back to in-memory app store")
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewGormStore(db)
	if err != nil {
		log.WithError(err).Warn("Database migration failed, falling back to in-memory app store")
		Close(db)
		return store.NewMemoryStore(), nil
	}

	log.WithField("driver", cfg.StoreDriver).Info("Using SQL app store")
	return s, db
}

// OpenSessionStore returns the session store selected by cfg.SessionBackend.
// The returned close function releases the redis client, if any.
func OpenSessionStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (session.Store, func()) {
	noop := func() {}
	if cfg.SessionBackend != SessionRedis {
		return session.NewMemoryStore(), noop
	}

	client, err := ConnectRedis(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, sessions are kept in memory")
		return session.NewMemoryStore(), noop
	}

	log.WithField("addr", client.Options().Addr).Info("Sessions stored in Redis")
	return session.NewRedisStore(client), func() { client.Close() }
}

// OpenBlobStore returns the file store selected by cfg.BlobBackend wrapped in
// a Fallback, so uploads keep working in memory when the backend fails.
func OpenBlobStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) *blob.Fallback {
	var (
		primary blob.BlobStore
		err     error
	)

	switch cfg.BlobBackend {
	case BlobMemory:
		log.Warn("Using in-memory file storage - uploads are lost on restart")
		return blob.NewFallback(nil, log)
	case BlobFTP:
		primary, err = blob.NewFTPStore(ctx, blob.FTPConfig{
			Host:     cfg.FTPHost,
			Port:     cfg.FTPPort,
			Username: cfg.FTPUser,
			Password: cfg.FTPPassword,
			Path:     cfg.FTPPath,
			Timeout:  30 * time.Second,
		})
	default:
		primary, err = blob.NewFSStore(cfg.UploadsPath)
	}

	if err != nil {
		log.WithError(err).WithField("backend", cfg.BlobBackend).Warn("File storage unavailable, uploads are kept in memory")
		return blob.NewFallback(nil, log)
	}

	log.WithField("backend", cfg.BlobBackend).Info("File storage ready")
	return blob.NewFallback(primary, log)
}
