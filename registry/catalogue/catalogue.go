// Package catalogue implements the Tool Catalogue component of spec.md
// §4.5: a mapping from (server, tool name) to ToolOrigin plus a similarity
// index biased toward a lazily-registered tool surface.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/pool"
)

// ToolDescriptor is the value type the rest of the gateway advertises to an
// Agent. Identity is name alone, unique within one live Toolbox.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolOrigin pairs a ToolDescriptor with the server it came from. Produced
// by similarity search, consumed by the Toolbox to register tools lazily.
type ToolOrigin struct {
	Tool   ToolDescriptor
	Server mcp.ServerDescriptor
}

// key is the compound storage key "{server.url}::{transport}-{tool.name}",
// matching the persistent Store's "{server.url}-{tool.name}" convention
// (spec.md §4.5) with the ServerDescriptor's own "::" identity folded in.
func key(server mcp.ServerDescriptor, toolName string) string {
	return fmt.Sprintf("%s-%s", server.Key(), toolName)
}

// connectionTip is appended to every query-tools search query to bias recall
// toward authorization/connection helpers (spec.md §4.5).
const connectionTip = "Additionally, any relevant connection tools"

const defaultQueryLimit = 10

// Catalogue is the single-writer, multi-reader core behind the Registry
// Service: addServer/addTool/deleteTool take the exclusive lock;
// queryTools/listTools take the shared lock (spec.md §5).
type Catalogue struct {
	mu       sync.RWMutex
	store    Store
	index    *Index
	nameToKey map[string]string
	log      *zap.Logger

	pool *pool.Pool[string, *mcp.Client]
}

// New builds a Catalogue backed by store and embedder, with connPool used to
// open connections during addServer.
func New(store Store, embedder Embedder, connPool *pool.Pool[string, *mcp.Client], log *zap.Logger) *Catalogue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalogue{
		store:     store,
		index:     NewIndex(embedder),
		nameToKey: make(map[string]string),
		pool:      connPool,
		log:       log,
	}
}

// AddServer connects to server via the pool, lists its tools, and upserts
// each one. If any individual addTool fails the server's already-upserted
// tools stay recorded — the error is surfaced, not rolled back (spec.md
// §4.5 "atomic: ... the server is still recorded but the error is
// surfaced").
func (c *Catalogue) AddServer(ctx context.Context, server mcp.ServerDescriptor) ([]ToolDescriptor, error) {
	client, err := c.pool.Acquire(ctx, server.Key(), func(ctx context.Context) (*mcp.Client, error) {
		return mcp.Dial(server, c.log)
	})
	if err != nil {
		return nil, fmt.Errorf("catalogue: connect to %s: %w", server.Key(), err)
	}

	infos, err := client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalogue: list tools on %s: %w", server.Key(), err)
	}

	added := make([]ToolDescriptor, 0, len(infos))
	var firstErr error
	for _, info := range infos {
		td := ToolDescriptor{
			Name:        info.Name,
			Description: info.Description,
			InputSchema: schemaToMap(info.InputSchema),
		}
		if err := c.AddTool(ctx, td, server); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.log.Warn("catalogue: addTool failed during addServer",
				zap.String("server", server.Key()), zap.String("tool", td.Name), zap.Error(err))
			continue
		}
		added = append(added, td)
	}
	return added, firstErr
}

// AddTool upserts tool under (server, tool.name) and reindexes it.
func (c *Catalogue) AddTool(ctx context.Context, tool ToolDescriptor, server mcp.ServerDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	origin := ToolOrigin{Tool: tool, Server: server}
	k := key(server, tool.Name)
	if err := c.store.Upsert(ctx, k, origin); err != nil {
		return fmt.Errorf("catalogue: upsert %s: %w", tool.Name, err)
	}
	c.index.Put(tool.Name, tool.Description)
	c.nameToKey[tool.Name] = k
	return nil
}

// DeleteTool removes name and rebuilds the similarity index without it —
// the flat index has no point-deletion of its own (spec.md §4.5).
func (c *Catalogue) DeleteTool(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matchKey, found := c.nameToKey[name]
	if !found {
		return false, nil
	}

	if err := c.store.Delete(ctx, matchKey); err != nil {
		return false, fmt.Errorf("catalogue: delete %s: %w", name, err)
	}

	c.index.Remove(name)
	delete(c.nameToKey, name)
	return true, nil
}

// QueryTools runs a similarity search against the index and returns up to
// limit ToolOrigin records (default 10), biased toward connection tools.
func (c *Catalogue) QueryTools(ctx context.Context, query string, limit int) ([]ToolOrigin, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	c.mu.RLock()
	names := c.index.Search(query+". "+connectionTip, limit)
	c.mu.RUnlock()

	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(names))
	c.mu.RLock()
	for _, n := range names {
		if k, ok := c.nameToKey[n]; ok {
			keys = append(keys, k)
		}
	}
	c.mu.RUnlock()

	got, err := c.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("catalogue: batch get: %w", err)
	}

	out := make([]ToolOrigin, 0, len(got))
	for _, o := range got {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

// ListTools returns up to limit tools (0 = unbounded) in a stable order.
func (c *Catalogue) ListTools(ctx context.Context, limit int) ([]ToolDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	origins, err := c.store.Scan(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("catalogue: scan: %w", err)
	}

	keys := make([]string, 0, len(origins))
	for k := range origins {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ToolDescriptor, 0, len(keys))
	for _, k := range keys {
		out = append(out, origins[k].Tool)
	}
	return out, nil
}

func schemaToMap(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}
