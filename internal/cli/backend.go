package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/tbd/internal/adapter/filestore"
	cfnats "github.com/Strob0t/tbd/internal/adapter/nats"
	"github.com/Strob0t/tbd/internal/adapter/natskv"
	"github.com/Strob0t/tbd/internal/adapter/postgres"
	"github.com/Strob0t/tbd/internal/config"
	"github.com/Strob0t/tbd/internal/domain/task"
	"github.com/Strob0t/tbd/internal/domain/tasklog"
	"github.com/Strob0t/tbd/internal/port/messagequeue"
	"github.com/Strob0t/tbd/internal/port/snapshot"
)

// backend bundles the snapshot store selected by configuration with the
// connections it needs.
type backend struct {
	store snapshot.Store
	opts  []tasklog.Option

	// queue is set when the nats backend is used or event publishing is on.
	queue *cfnats.Queue
	pool  *pgxpool.Pool
}

// Close releases the backend's connections.
func (b *backend) Close() {
	if b.queue != nil {
		if err := b.queue.Drain(); err != nil {
			slog.Warn("nats drain", "error", err)
		}
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// Queue returns the event queue, or nil when publishing is disabled.
func (b *backend) Queue(cfg *config.Config) messagequeue.Queue {
	if b.queue == nil || !cfg.NATS.Publish {
		return nil
	}
	return b.queue
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	policy, err := task.ParseCooldownPolicy(cfg.Activation.CooldownOnMiss)
	if err != nil {
		return nil, fmt.Errorf("activation: %w", err)
	}
	b := &backend{opts: []tasklog.Option{tasklog.WithCooldownPolicy(policy)}}

	if cfg.Storage.Backend == config.BackendNATS || cfg.NATS.Publish {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		b.queue = q
	}

	switch cfg.Storage.Backend {
	case config.BackendFile:
		b.store = filestore.New(b.opts...)

	case config.BackendPostgres:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.pool = pool
		b.store = postgres.NewStore(pool, b.opts...)

	case config.BackendNATS:
		kv, err := natskv.OpenBucket(ctx, b.queue.JetStream(), cfg.NATS.Bucket)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("nats kv: %w", err)
		}
		b.store = natskv.New(kv, b.opts...)

	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	slog.Debug("storage backend ready", "backend", cfg.Storage.Backend, "location", cfg.Storage.Location)
	return b, nil
}
