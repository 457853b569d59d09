package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Factory creates, validates and destroys sessions for nodes.
type Factory interface {
	// Create establishes an admin-authenticated session. Failures surface
	// wrapped in ErrUnavailable and the result must never be treated as a
	// usable session.
	Create(ctx context.Context, node Node) (*Session, error)
	// Validate issues a lightweight probe; any error means invalid.
	Validate(ctx context.Context, session *Session) bool
	// Destroy disconnects best-effort; errors are logged and swallowed
	// since the caller has no remaining use for the session.
	Destroy(session *Session)
}

// ConnFactory implements Factory on top of a protocol Dialer.
type ConnFactory struct {
	dialer Dialer
	logger *slog.Logger
}

// NewConnFactory wires a factory. A nil logger falls back to slog.Default.
func NewConnFactory(dialer Dialer, logger *slog.Logger) *ConnFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnFactory{dialer: dialer, logger: logger}
}

// Create dials the node with its administrative credential.
func (f *ConnFactory) Create(ctx context.Context, node Node) (*Session, error) {
	started := time.Now()
	conn, err := f.dialer.Dial(ctx, node)
	if err != nil {
		f.logger.Warn("session create failed", "node", node.ID, "error", err)
		return nil, fmt.Errorf("connect to node %s: %w: %v", node.ID, ErrUnavailable, err)
	}
	session := NewSession(node, conn)
	f.logger.Info("session created", "node", node.ID, "session", session.ID(), "elapsed", time.Since(started))
	return session, nil
}

// Validate probes the session's capabilities.
func (f *ConnFactory) Validate(ctx context.Context, session *Session) bool {
	if session == nil {
		return false
	}
	if _, err := session.Capabilities(ctx); err != nil {
		f.logger.Debug("session failed validation probe", "node", session.Node().ID, "session", session.ID(), "error", err)
		return false
	}
	return true
}

// Destroy disconnects the session, swallowing any disconnect error.
func (f *ConnFactory) Destroy(session *Session) {
	if session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Disconnect(ctx); err != nil {
		f.logger.Debug("ignoring disconnect error", "node", session.Node().ID, "session", session.ID(), "error", err)
	}
}
