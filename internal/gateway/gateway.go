// Package gateway performs calendar operations over one borrowed session,
// translating between the remote wire format and the document model. It
// owns the repair of the remote store's truncated-response defect; no raw
// payload reaches a parser without passing through it.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/remote"
)

// Gateway scopes calendar operations to a single session. It is cheap to
// construct per borrow and must not outlive the session's loan.
type Gateway struct {
	session *remote.Session
	logger  *slog.Logger
}

// New wraps a borrowed session.
func New(session *remote.Session, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{session: session, logger: logger}
}

// Session exposes the underlying session, mainly so callers can bind the
// acting identity before issuing operations.
func (g *Gateway) Session() *remote.Session { return g.session }

// FetchRange retrieves the calendar for loginID between start and end,
// repairing and parsing the raw response.
func (g *Gateway) FetchRange(ctx context.Context, loginID string, start, end time.Time) (calendar.Document, error) {
	raw, err := g.session.FetchEventsByRange(ctx, FetchFlags(), loginID, start, end)
	if err != nil {
		return calendar.Document{}, fmt.Errorf("fetch range for %s: %w", loginID, err)
	}
	return g.repairAndParse(raw, loginID)
}

// FetchReflections retrieves only availability-reflection entries for
// loginID in the range.
func (g *Gateway) FetchReflections(ctx context.Context, loginID string, start, end time.Time) (calendar.Document, error) {
	raw, err := g.session.FetchEventsByRange(ctx, ReflectionFetchFlags(), loginID, start, end)
	if err != nil {
		return calendar.Document{}, fmt.Errorf("fetch reflections for %s: %w", loginID, err)
	}
	doc, err := g.repairAndParse(raw, loginID)
	if err != nil {
		return calendar.Document{}, err
	}
	var reflections calendar.Document
	for _, e := range doc.Events {
		if e.Reflection {
			reflections.Events = append(reflections.Events, e)
		}
	}
	return reflections, nil
}

// Store sends a document with the given flags. Create/modify/replace intent
// is carried purely by flags; the gateway never infers it from content.
func (g *Gateway) Store(ctx context.Context, flags remote.Flags, doc calendar.Document) (remote.StoreResult, error) {
	result, err := g.session.StoreEvents(ctx, flags, calendar.Encode(doc))
	if err != nil {
		return remote.StoreResult{}, fmt.Errorf("store events: %w", err)
	}
	return result, nil
}

// StoreEvent stores a single event wrapped in a calendar envelope.
func (g *Gateway) StoreEvent(ctx context.Context, flags remote.Flags, event calendar.Event) (remote.StoreResult, error) {
	return g.Store(ctx, flags, calendar.Document{Events: []calendar.Event{event}})
}

// Delete removes events by UID, single instance scope. With continueOnError
// set, individual UID failures are aggregated in the result instead of
// aborting the batch; otherwise the first failure aborts.
func (g *Gateway) Delete(ctx context.Context, uids []string, continueOnError bool) (remote.DeleteResult, error) {
	if len(uids) == 0 {
		return remote.DeleteResult{}, nil
	}
	flags := remote.FlagNone
	if continueOnError {
		flags = remote.FlagContinueOnError
	}
	result, err := g.session.DeleteEvents(ctx, flags, uids, remote.ThisInstance)
	if err != nil {
		return remote.DeleteResult{}, fmt.Errorf("delete events: %w", err)
	}
	return result, nil
}

// LookupHandle resolves a login identity to its remote GUID and stored
// email address.
func (g *Gateway) LookupHandle(ctx context.Context, loginID string) (remote.Handle, error) {
	handle, err := g.session.Handle(ctx, loginID)
	if err != nil {
		return remote.Handle{}, fmt.Errorf("lookup handle for %s: %w", loginID, err)
	}
	return handle, nil
}

func (g *Gateway) repairAndParse(raw, loginID string) (calendar.Document, error) {
	repaired, err := calendar.Repair(raw)
	if err != nil {
		g.logger.Error("unrepairable response from remote store", "login", loginID, "error", err)
		return calendar.Document{}, err
	}
	if repaired != raw {
		g.logger.Warn("repaired response missing its terminator", "login", loginID, "node", g.session.Node().ID)
	}
	doc, err := calendar.Parse(repaired)
	if err != nil {
		return calendar.Document{}, err
	}
	return doc, nil
}

// FetchFlags is the filter set for full agenda and single-event fetches.
func FetchFlags() remote.Flags {
	return remote.FlagFetchExcludeHolidays | remote.FlagFetchExcludeDayEvents | remote.FlagFetchExcludeDailyNotes
}

// ReflectionFetchFlags is the filter set for reflection lookups: daily
// notes only.
func ReflectionFetchFlags() remote.Flags {
	return remote.FlagFetchExcludeHolidays | remote.FlagFetchExcludeDayEvents | remote.FlagFetchExcludeAppointments
}

// CreateFlags is the flag set for the first store of a new appointment.
func CreateFlags() remote.Flags {
	return remote.FlagStoreCreate
}

// ModifyFlags is the flag set for the second store of a two-phase create
// and for join updates.
func ModifyFlags() remote.Flags {
	return remote.FlagStoreModify
}

// ReplaceFlags is the flag set for storing an event with an attendee
// removed.
func ReplaceFlags() remote.Flags {
	return remote.FlagStoreReplace
}

// ReflectionStoreFlags is the flag set for storing availability
// reflections: create plus invite-self so the reflection lands on the
// owner's own calendar without a separate accept.
func ReflectionStoreFlags() remote.Flags {
	return remote.FlagStoreCreate | remote.FlagStoreInviteSelf
}
