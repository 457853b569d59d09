package remote

import (
	"context"
	"time"
)

// Flags modify fetch, store and delete calls. The values mirror the remote
// API's bitmask surface; only the subset the bridge uses is defined.
type Flags int

const (
	FlagNone Flags = 0

	// Store flags. Create assigns a new UID server-side; Modify updates an
	// existing UID; Replace overwrites the stored event wholesale.
	FlagStoreCreate Flags = 1 << iota
	FlagStoreModify
	FlagStoreReplace
	// FlagStoreInviteSelf places the stored event on the acting identity's
	// own calendar without a separate accept step.
	FlagStoreInviteSelf

	// FlagContinueOnError makes bulk deletes tolerate per-UID failures,
	// aggregating them in the result instead of aborting the batch.
	FlagContinueOnError

	// Fetch filters.
	FlagFetchExcludeAppointments
	FlagFetchExcludeDailyNotes
	FlagFetchExcludeHolidays
	FlagFetchExcludeDayEvents
)

// Has reports whether all bits of want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// InstanceScope selects which instances of a recurring entry a delete
// targets. The bridge only ever deletes single instances.
type InstanceScope int

const (
	ThisInstance InstanceScope = iota
	AllInstances
)

// StoreResult reports the outcome of a store call; UIDs holds the
// server-assigned identifier of each stored event in document order.
type StoreResult struct {
	UIDs []string
}

// FirstUID returns the first assigned UID, or "" when nothing was stored.
func (r StoreResult) FirstUID() string {
	if len(r.UIDs) == 0 {
		return ""
	}
	return r.UIDs[0]
}

// DeleteResult reports the outcome of a bulk delete. With continue-on-error
// semantics, Failed carries the per-UID errors that were tolerated.
type DeleteResult struct {
	Deleted int
	Failed  map[string]error
}

// Handle is the remote store's record for a login identity.
type Handle struct {
	GUID  string
	Email string
}

// Conn is the wire protocol surface of one authenticated connection to a
// node. The production protocol driver is external to this module; the
// in-memory node in memdriver implements it for development and tests.
type Conn interface {
	SetIdentity(ctx context.Context, loginID string) error
	FetchEventsByRange(ctx context.Context, flags Flags, loginID string, start, end time.Time) (string, error)
	StoreEvents(ctx context.Context, flags Flags, payload string) (StoreResult, error)
	DeleteEvents(ctx context.Context, flags Flags, uids []string, scope InstanceScope) (DeleteResult, error)
	Handle(ctx context.Context, loginID string) (Handle, error)
	Capabilities(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
}

// Dialer establishes admin-authenticated connections to nodes.
type Dialer interface {
	Dial(ctx context.Context, node Node) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, node Node) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, node Node) (Conn, error) {
	return f(ctx, node)
}
