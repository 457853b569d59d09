package application

import (
	"context"
	"fmt"

	"github.com/example/calendar-bridge/internal/remote"
)

// SessionProvider hands out sessions for nodes and takes them back. The
// invalidate flag on Release marks the session as faulted so it is never
// reused; healthy sessions go back into circulation.
type SessionProvider interface {
	Acquire(ctx context.Context, node remote.Node) (*remote.Session, error)
	Release(node remote.Node, session *remote.Session, invalidate bool)
}

// PooledSessions is the production provider backed by the keyed pool.
type PooledSessions struct {
	pool *remote.Pool
}

// NewPooledSessions wraps a pool as a provider.
func NewPooledSessions(pool *remote.Pool) *PooledSessions {
	return &PooledSessions{pool: pool}
}

func (p *PooledSessions) Acquire(ctx context.Context, node remote.Node) (*remote.Session, error) {
	return p.pool.Borrow(ctx, node)
}

func (p *PooledSessions) Release(node remote.Node, session *remote.Session, invalidate bool) {
	if invalidate {
		p.pool.Invalidate(node, session)
		return
	}
	p.pool.Return(node, session)
}

// DirectSessions creates a fresh session per acquire and destroys it on
// release, bypassing pooling. Useful for one-shot tooling where keeping
// connections warm buys nothing.
type DirectSessions struct {
	factory remote.Factory
}

// NewDirectSessions wraps a factory as an unpooled provider.
func NewDirectSessions(factory remote.Factory) *DirectSessions {
	return &DirectSessions{factory: factory}
}

func (p *DirectSessions) Acquire(ctx context.Context, node remote.Node) (*remote.Session, error) {
	return p.factory.Create(ctx, node)
}

func (p *DirectSessions) Release(_ remote.Node, session *remote.Session, _ bool) {
	p.factory.Destroy(session)
}

// UnavailableNodes wraps a provider and fails acquisition for the listed
// nodes with ErrUnavailable, for rehearsing degraded-node behavior without
// touching the nodes themselves.
type UnavailableNodes struct {
	next  SessionProvider
	nodes map[string]struct{}
}

// NewUnavailableNodes marks the given node IDs as down.
func NewUnavailableNodes(next SessionProvider, nodeIDs ...string) *UnavailableNodes {
	nodes := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		nodes[id] = struct{}{}
	}
	return &UnavailableNodes{next: next, nodes: nodes}
}

func (p *UnavailableNodes) Acquire(ctx context.Context, node remote.Node) (*remote.Session, error) {
	if _, down := p.nodes[node.ID]; down {
		return nil, fmt.Errorf("node %s marked unavailable: %w", node.ID, remote.ErrUnavailable)
	}
	return p.next.Acquire(ctx, node)
}

func (p *UnavailableNodes) Release(node remote.Node, session *remote.Session, invalidate bool) {
	p.next.Release(node, session, invalidate)
}
