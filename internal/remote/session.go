package remote

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated connection handle to one node, bound at any
// instant to an acting identity. Sessions are never shared between
// concurrent operations; the pool hands each instance to one borrower at a
// time.
type Session struct {
	id       string
	node     Node
	conn     Conn
	identity string
}

// NewSession wraps an established connection. The instance ID lets the pool
// track and invalidate a specific session.
func NewSession(node Node, conn Conn) *Session {
	return &Session{
		id:   uuid.NewString(),
		node: node,
		conn: conn,
	}
}

// ID returns the session's unique instance identifier.
func (s *Session) ID() string { return s.id }

// Node returns the node this session is connected to.
func (s *Session) Node() Node { return s.node }

// Identity returns the login the session currently acts as, or "" when the
// session is still admin-bound.
func (s *Session) Identity() string { return s.identity }

// SetIdentity switches the session to act on behalf of the given login.
func (s *Session) SetIdentity(ctx context.Context, loginID string) error {
	if err := s.conn.SetIdentity(ctx, loginID); err != nil {
		return err
	}
	s.identity = loginID
	return nil
}

// FetchEventsByRange issues the remote range query for the given calendar.
func (s *Session) FetchEventsByRange(ctx context.Context, flags Flags, loginID string, start, end time.Time) (string, error) {
	return s.conn.FetchEventsByRange(ctx, flags, loginID, start, end)
}

// StoreEvents sends a calendar payload; create/modify/replace intent is
// carried entirely by flags.
func (s *Session) StoreEvents(ctx context.Context, flags Flags, payload string) (StoreResult, error) {
	return s.conn.StoreEvents(ctx, flags, payload)
}

// DeleteEvents removes events by UID.
func (s *Session) DeleteEvents(ctx context.Context, flags Flags, uids []string, scope InstanceScope) (DeleteResult, error) {
	return s.conn.DeleteEvents(ctx, flags, uids, scope)
}

// Handle resolves a login identity to its remote GUID and stored email.
func (s *Session) Handle(ctx context.Context, loginID string) (Handle, error) {
	return s.conn.Handle(ctx, loginID)
}

// Capabilities issues the read-only probe used for validation.
func (s *Session) Capabilities(ctx context.Context) (string, error) {
	return s.conn.Capabilities(ctx)
}

// Disconnect tears the connection down.
func (s *Session) Disconnect(ctx context.Context) error {
	return s.conn.Disconnect(ctx)
}
