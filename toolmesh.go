// Package toolmesh wires the four components of spec.md §2 — Connection
// Pool, Registry (Catalogue + Service + Client), Toolbox, and Agent Loop —
// into the single Gateway a caller (the REPL in cmd/toolmeshd, or a test)
// drives one turn at a time.
package toolmesh

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/relaymesh/toolmesh/agent"
	"github.com/relaymesh/toolmesh/agentloop"
	"github.com/relaymesh/toolmesh/conversation"
	"github.com/relaymesh/toolmesh/internal/config"
	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/pool"
	"github.com/relaymesh/toolmesh/registry/catalogue"
	"github.com/relaymesh/toolmesh/registry/client"
	"github.com/relaymesh/toolmesh/registry/service"
	"github.com/relaymesh/toolmesh/toolbox"
)

// Gateway is one live instance of the system spec.md describes: a
// Connection Pool of upstream MCP clients, a Tool Catalogue fronted by an
// in-process Registry Service and Client, a Toolbox presenting the
// lazily-grown active tool surface, and an Agent Loop driving turns
// against it.
type Gateway struct {
	Pool      *pool.Pool[string, *mcp.Client]
	Catalogue *catalogue.Catalogue
	Registry  *client.Client
	Toolbox   *toolbox.Toolbox
	Loop      *agentloop.Loop

	log *zap.Logger
}

// New assembles a Gateway from cfg. a is the Agent the loop drives; log is
// threaded into every component, through the pool's Config.Logger, the
// registry constructors' log argument, or a WithLogger option (nil becomes
// a no-op logger throughout).
func New(cfg *config.Config, a agent.Agent, log *zap.Logger) (*Gateway, error) {
	if log == nil {
		log = zap.NewNop()
	}

	connPool := pool.New[string, *mcp.Client](pool.Config[*mcp.Client]{
		Capacity: cfg.PoolMaxSize,
		TTL:      cfg.PoolTTL,
		Dispose: func(c *mcp.Client) error {
			return c.Close()
		},
		Logger: log,
	})

	store, err := openStore(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("toolmesh: open store: %w", err)
	}

	cat := catalogue.New(store, catalogue.NewHashEmbedder(), connPool, log)
	svc := service.New(cat, log)

	registryMCP := mcp.NewClient(mcp.ServerDescriptor{URL: "registry", Transport: mcp.TransportStdio}, svc, log)
	registryClient := client.New(registryMCP, log)

	tb := toolbox.New(connPool, registryClient, toolbox.WithLogger(log))
	loop := agentloop.New(a, tb, agentloop.WithMaxDepth(cfg.MaxRecursionDepth), agentloop.WithLogger(log))

	return &Gateway{
		Pool:      connPool,
		Catalogue: cat,
		Registry:  registryClient,
		Toolbox:   tb,
		Loop:      loop,
		log:       log,
	}, nil
}

// openStore picks the Tool Catalogue's persistence layer from dsn (spec.md
// §6): empty means in-memory, a postgres:// DSN opens GormStore over
// postgres, anything else is a sqlite file path (or ":memory:").
func openStore(dsn string) (catalogue.Store, error) {
	if dsn == "" {
		return catalogue.NewMemoryStore(), nil
	}

	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var dialector gorm.Dialector
	if isPostgresDSN(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("toolmesh: connect %s: %w", dsn, err)
	}
	return catalogue.NewGormStore(db)
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Bootstrap connects the Gateway to every initial server spec (spec.md §6's
// trailing <server-spec> arguments), registering each server's tools into
// the catalogue up front so the first query-tools call has something to
// find.
func (g *Gateway) Bootstrap(ctx context.Context, servers []mcp.ServerDescriptor) error {
	for _, desc := range servers {
		if _, err := g.Catalogue.AddServer(ctx, desc); err != nil {
			return fmt.Errorf("toolmesh: bootstrap %s: %w", desc.Key(), err)
		}
	}
	return nil
}

// RunTurn drives a single Agent Loop turn for query against conv, mutating
// conv in place (spec.md §4.10).
func (g *Gateway) RunTurn(ctx context.Context, conv *conversation.Conversation, query string) error {
	return g.Loop.Run(ctx, conv, query)
}

// Close releases every pooled upstream connection, awaiting disposal.
func (g *Gateway) Close() {
	g.Pool.Clear()
}
