package marl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/marldb/marl/pkg/adapters/mongodb"
	"github.com/marldb/marl/pkg/core"
)

// Process-wide registry of driver clients, keyed by normalized config.
// Clients are created on first use and shared; the library never tears
// them down; lifecycle is the surrounding application's concern.
var (
	clientsMu    sync.RWMutex
	clients      = make(map[string]*mongo.Client)
	connectGroup singleflight.Group
)

// Client binds a configuration to a shared driver client and database.
type Client struct {
	cfg    Config
	mc     *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Connect returns a client for the given configuration. Clients with
// the same normalized configuration share one underlying driver client.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	mc, err := sharedClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		mc:     mc,
		db:     mc.Database(cfg.Database),
		logger: cfg.Logger,
	}, nil
}

func sharedClient(ctx context.Context, cfg Config) (*mongo.Client, error) {
	key := cfg.cacheKey()

	clientsMu.RLock()
	mc, ok := clients[key]
	clientsMu.RUnlock()
	if ok {
		return mc, nil
	}

	// singleflight collapses concurrent first connections for the same
	// configuration into one driver client.
	v, err, _ := connectGroup.Do(key, func() (any, error) {
		clientsMu.RLock()
		mc, ok := clients[key]
		clientsMu.RUnlock()
		if ok {
			return mc, nil
		}

		opts := options.Client().ApplyURI(cfg.URI)
		if cfg.ConnectTimeout > 0 {
			opts.SetConnectTimeout(cfg.ConnectTimeout)
		}
		mc, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}

		clientsMu.Lock()
		clients[key] = mc
		clientsMu.Unlock()
		return mc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

// Ping verifies connectivity to the deployment.
func (c *Client) Ping(ctx context.Context) error {
	return c.mc.Ping(ctx, readpref.Primary())
}

// Database returns the underlying driver database handle.
func (c *Client) Database() *mongo.Database { return c.db }

// Driver returns a core.Driver for the named collection.
func (c *Client) Driver(collection string) core.Driver {
	return mongodb.New(c.db.Collection(collection))
}
