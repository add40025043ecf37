package conn

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"shardhub/internal/routing"
	"shardhub/internal/topology"
)

// Factory opens connections to shard primaries.
type Factory struct {
	topo   *topology.Topology
	opener Opener
	logger Logger
}

func NewFactory(topo *topology.Topology, opener Opener, logger Logger) *Factory {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Factory{topo: topo, opener: opener, logger: logger}
}

// Connection opens a connection to the shard's primary.
func (f *Factory) Connection(ctx context.Context, shardID string) (*Conn, error) {
	info, err := f.topo.Shard(shardID)
	if err != nil {
		return nil, err
	}
	return open(ctx, f.opener, shardID, info.ConnectionString, false)
}

// AllConnections opens one primary connection per active shard, in parallel.
// If any shard fails, every connection already opened by this call is closed
// before the first error is returned, so a failed scatter-gather never leaks.
func (f *Factory) AllConnections(ctx context.Context) (map[string]*Conn, error) {
	return fanOut(ctx, f.topo.ActiveShards(), func(ctx context.Context, info topology.ShardInfo) (*Conn, error) {
		return open(ctx, f.opener, info.ShardID, info.ConnectionString, false)
	})
}

// open dials an endpoint and normalizes failures: cancellation passes through
// untouched, everything else is wrapped as an OpenError.
func open(ctx context.Context, opener Opener, shardID, endpoint string, replica bool) (*Conn, error) {
	c, err := opener.Open(ctx, shardID, endpoint, replica)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &OpenError{ShardID: shardID, Endpoint: endpoint, Err: err}
	}
	return c, nil
}

// fanOut runs one open per shard concurrently and joins the results. The
// first failure cancels the rest; opens already in flight may still complete,
// and their connections are closed along with every other success.
func fanOut(ctx context.Context, shards []topology.ShardInfo, openOne func(context.Context, topology.ShardInfo) (*Conn, error)) (map[string]*Conn, error) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	conns := make(map[string]*Conn, len(shards))

	for _, info := range shards {
		info := info
		g.Go(func() error {
			c, err := openOne(gctx, info)
			if err != nil {
				return err
			}
			mu.Lock()
			conns[c.ShardID] = c
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, c := range conns {
			_ = c.Close()
		}
		return nil, err
	}
	return conns, nil
}

// CloseAll closes every connection in a scatter-gather result, keeping the
// first close error.
func CloseAll(conns map[string]*Conn) error {
	var first error
	for _, c := range conns {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ConnectionForEntity resolves the entity to a shard and opens a primary
// connection to it.
func ConnectionForEntity[T any](ctx context.Context, f *Factory, er *routing.EntityRouter[T], entity T) (*Conn, error) {
	shardID, err := er.ResolveEntity(entity)
	if err != nil {
		return nil, err
	}
	return f.Connection(ctx, shardID)
}
