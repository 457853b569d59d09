package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PoolConfig bounds each node's sub-pool.
type PoolConfig struct {
	// MaxPerNode caps the live sessions (idle plus borrowed) per node.
	MaxPerNode int
	// BorrowTimeout bounds the wait when a node is at capacity. Zero means
	// fail fast instead of waiting.
	BorrowTimeout time.Duration
}

// DefaultPoolConfig returns the pool bounds used when none are configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxPerNode: 4, BorrowTimeout: 30 * time.Second}
}

// NodeStats is a point-in-time snapshot of one node's sub-pool.
type NodeStats struct {
	Borrowed int `json:"borrowed"`
	Idle     int `json:"idle"`
}

// Pool is a keyed session pool: one bounded sub-pool per node. Sessions are
// validated on borrow; invalid idles are destroyed and replaced. Operations
// on different nodes never serialize against each other.
type Pool struct {
	factory Factory
	cfg     PoolConfig
	logger  *slog.Logger

	mu     sync.Mutex
	nodes  map[string]*nodePool
	closed bool
}

type nodePool struct {
	node Node

	mu       sync.Mutex
	idle     []pooledSession
	borrowed map[string]int
	live     int
	gen      int
	waiters  []chan struct{}
}

// pooledSession records the clear-generation a session was created under so
// that sessions outstanding across a Clear are destroyed on return.
type pooledSession struct {
	session *Session
	gen     int
}

// NewPool constructs an empty pool. Sessions are created on demand.
func NewPool(factory Factory, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.MaxPerNode <= 0 {
		cfg.MaxPerNode = DefaultPoolConfig().MaxPerNode
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		factory: factory,
		cfg:     cfg,
		logger:  logger,
		nodes:   make(map[string]*nodePool),
	}
}

// Borrow hands out a session for the node: an idle validated session when
// one exists, a fresh one while under the cap, otherwise it waits up to
// BorrowTimeout for capacity. Capacity exhaustion and timeouts surface as
// ErrUnavailable.
func (p *Pool) Borrow(ctx context.Context, node Node) (*Session, error) {
	np, err := p.nodePool(node)
	if err != nil {
		return nil, err
	}

	var deadline <-chan time.Time
	if p.cfg.BorrowTimeout > 0 {
		timer := time.NewTimer(p.cfg.BorrowTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		np.mu.Lock()

		if n := len(np.idle); n > 0 {
			candidate := np.idle[n-1]
			np.idle = np.idle[:n-1]
			np.borrowed[candidate.session.ID()] = candidate.gen
			np.mu.Unlock()

			if p.factory.Validate(ctx, candidate.session) {
				return candidate.session, nil
			}
			p.logger.Info("destroying idle session that failed validation", "node", node.ID, "session", candidate.session.ID())
			np.discardBorrowed(candidate.session.ID())
			p.factory.Destroy(candidate.session)
			np.wake()
			continue
		}

		if np.live < p.cfg.MaxPerNode {
			np.live++
			gen := np.gen
			np.mu.Unlock()

			session, err := p.factory.Create(ctx, node)
			if err != nil {
				np.mu.Lock()
				np.live--
				np.mu.Unlock()
				np.wake()
				return nil, err
			}
			np.mu.Lock()
			np.borrowed[session.ID()] = gen
			np.mu.Unlock()
			return session, nil
		}

		if p.cfg.BorrowTimeout <= 0 {
			np.mu.Unlock()
			return nil, fmt.Errorf("node %s session pool at capacity: %w", node.ID, ErrUnavailable)
		}

		waiter := make(chan struct{}, 1)
		np.waiters = append(np.waiters, waiter)
		np.mu.Unlock()

		select {
		case <-waiter:
		case <-deadline:
			np.dropWaiter(waiter)
			return nil, fmt.Errorf("timed out waiting for a session on node %s: %w", node.ID, ErrUnavailable)
		case <-ctx.Done():
			np.dropWaiter(waiter)
			return nil, fmt.Errorf("borrow on node %s: %w: %v", node.ID, ErrUnavailable, ctx.Err())
		}
	}
}

// Return places a healthy session back into the node's idle set. Sessions
// outstanding across a Clear, and returns after Close, are destroyed
// instead of re-parked.
func (p *Pool) Return(node Node, session *Session) {
	if session == nil {
		return
	}
	np, closed := p.lookup(node.ID)
	if np == nil {
		p.factory.Destroy(session)
		return
	}

	np.mu.Lock()
	gen, tracked := np.borrowed[session.ID()]
	if !tracked {
		np.mu.Unlock()
		p.logger.Warn("returned session not tracked by pool, destroying", "node", node.ID, "session", session.ID())
		p.factory.Destroy(session)
		return
	}
	delete(np.borrowed, session.ID())
	if closed || gen != np.gen {
		np.live--
		np.mu.Unlock()
		p.factory.Destroy(session)
		np.wake()
		return
	}
	np.idle = append(np.idle, pooledSession{session: session, gen: gen})
	np.mu.Unlock()
	np.wake()
}

// Invalidate permanently removes a specific session instance from
// circulation and destroys it. Other sessions for the node are unaffected.
func (p *Pool) Invalidate(node Node, session *Session) {
	if session == nil {
		return
	}
	np, _ := p.lookup(node.ID)
	if np == nil {
		p.factory.Destroy(session)
		return
	}
	np.discardBorrowed(session.ID())
	p.logger.Info("invalidated session", "node", node.ID, "session", session.ID())
	p.factory.Destroy(session)
	np.wake()
}

// Clear destroys every idle session across all nodes and marks outstanding
// sessions for destruction on return.
func (p *Pool) Clear() {
	p.mu.Lock()
	pools := make([]*nodePool, 0, len(p.nodes))
	for _, np := range p.nodes {
		pools = append(pools, np)
	}
	p.mu.Unlock()
	for _, np := range pools {
		p.clearNodePool(np)
	}
}

// ClearNode scopes Clear to one node, e.g. after a maintenance window.
func (p *Pool) ClearNode(nodeID string) {
	p.mu.Lock()
	np := p.nodes[nodeID]
	p.mu.Unlock()
	if np != nil {
		p.clearNodePool(np)
	}
}

// Close drains the pool. Borrows fail afterwards; sessions still borrowed
// are destroyed as they come back.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.Clear()
}

// Stats snapshots every node's borrowed/idle counts.
func (p *Pool) Stats() map[string]NodeStats {
	p.mu.Lock()
	pools := make(map[string]*nodePool, len(p.nodes))
	for id, np := range p.nodes {
		pools[id] = np
	}
	p.mu.Unlock()

	stats := make(map[string]NodeStats, len(pools))
	for id, np := range pools {
		np.mu.Lock()
		stats[id] = NodeStats{Borrowed: len(np.borrowed), Idle: len(np.idle)}
		np.mu.Unlock()
	}
	return stats
}

func (p *Pool) clearNodePool(np *nodePool) {
	np.mu.Lock()
	np.gen++
	idle := np.idle
	np.idle = nil
	np.live -= len(idle)
	np.mu.Unlock()

	for _, parked := range idle {
		p.factory.Destroy(parked.session)
	}
	if len(idle) > 0 {
		p.logger.Info("cleared idle sessions", "node", np.node.ID, "count", len(idle))
	}
	np.wake()
}

// lookup finds an existing sub-pool without creating one.
func (p *Pool) lookup(nodeID string) (*nodePool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodes[nodeID], p.closed
}

func (p *Pool) nodePool(node Node) (*nodePool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("session pool closed: %w", ErrUnavailable)
	}
	np, ok := p.nodes[node.ID]
	if !ok {
		np = &nodePool{node: node, borrowed: make(map[string]int)}
		p.nodes[node.ID] = np
	}
	return np, nil
}

// discardBorrowed drops the bookkeeping for a session leaving circulation.
func (np *nodePool) discardBorrowed(sessionID string) {
	np.mu.Lock()
	if _, tracked := np.borrowed[sessionID]; tracked {
		delete(np.borrowed, sessionID)
		np.live--
	}
	np.mu.Unlock()
}

// wake releases every parked waiter so each can re-check capacity.
func (np *nodePool) wake() {
	np.mu.Lock()
	waiters := np.waiters
	np.waiters = nil
	np.mu.Unlock()
	for _, w := range waiters {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

func (np *nodePool) dropWaiter(waiter chan struct{}) {
	np.mu.Lock()
	for i, w := range np.waiters {
		if w == waiter {
			np.waiters = append(np.waiters[:i], np.waiters[i+1:]...)
			break
		}
	}
	np.mu.Unlock()
}
