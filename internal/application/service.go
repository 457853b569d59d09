package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
	"github.com/example/calendar-bridge/internal/gateway"
	"github.com/example/calendar-bridge/internal/reconcile"
	"github.com/example/calendar-bridge/internal/remote"
)

// Registry resolves node identifiers to their connection settings.
type Registry interface {
	Node(id string) (remote.Node, bool)
}

// GUIDCache persists remote-resolved attributes back onto directory
// accounts, so handle lookups happen at most once per account.
type GUIDCache interface {
	SetAttribute(ctx context.Context, uniqueID, key, value string) error
}

// CalendarService orchestrates calendar operations: it resolves the node for
// an account, brackets every operation in an acquire/release pair, binds the
// acting identity and classifies failures into session faults (session
// invalidated, retry may help) and request faults (session healthy, retry
// will not help).
type CalendarService struct {
	registry    Registry
	sessions    SessionProvider
	engine      *reconcile.Engine
	guids       GUIDCache
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewCalendarService wires dependencies for calendar operations. guids may
// be nil; resolved GUIDs are then simply not cached.
func NewCalendarService(registry Registry, sessions SessionProvider, engine *reconcile.Engine, guids GUIDCache, logger *slog.Logger, idGenerator func() string, now func() time.Time) *CalendarService {
	if logger == nil {
		logger = slog.Default()
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		registry:    registry,
		sessions:    sessions,
		engine:      engine,
		guids:       guids,
		logger:      logger,
		idGenerator: idGenerator,
		now:         now,
	}
}

// Calendar returns the account's agenda for the window with decline
// resolution already applied, so the caller sees post-reconciliation state.
func (s *CalendarService) Calendar(ctx context.Context, owner reconcile.Owner, start, end time.Time) (calendar.Document, error) {
	var doc calendar.Document
	err := s.withSession(ctx, "calendar", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		fetched, err := gw.FetchRange(ctx, owner.Account.LoginID(), start, end)
		if err != nil {
			return err
		}
		doc, err = s.engine.ResolveDeclines(ctx, gw, fetched, owner)
		return err
	})
	return doc, err
}

// ExistingAppointment locates the managed appointment occupying exactly the
// given window on the owner's calendar.
func (s *CalendarService) ExistingAppointment(ctx context.Context, owner reconcile.Owner, start, end time.Time) (calendar.Event, error) {
	var found calendar.Event
	err := s.withSession(ctx, "existing_appointment", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		event, err := s.findAppointment(ctx, gw, owner, start, end)
		if err != nil {
			return err
		}
		found = event
		return nil
	})
	return found, err
}

// CreateAppointment books a visitor into the owner's block. The create is
// two-phase: the first store assigns a UID, then the UID-tagged event is
// stored again as a modify so the organizer's accepted status sticks.
func (s *CalendarService) CreateAppointment(ctx context.Context, owner reconcile.Owner, visitor reconcile.Visitor, block reconcile.AvailableBlock, start, end time.Time) (calendar.Event, error) {
	event := reconcile.BuildAppointment(owner, visitor, block, start, end)

	err := s.withSession(ctx, "create_appointment", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		result, err := gw.StoreEvent(ctx, gateway.CreateFlags(), event)
		if err != nil {
			return err
		}
		uid := result.FirstUID()
		if uid == "" {
			return fmt.Errorf("store returned no UID for new appointment")
		}
		event = event.WithUID(uid)
		if _, err := gw.StoreEvent(ctx, gateway.ModifyFlags(), event); err != nil {
			return fmt.Errorf("finalize appointment %s: %w", uid, err)
		}
		return nil
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return event, nil
}

// CancelAppointment removes the appointment from the owner's calendar.
func (s *CalendarService) CancelAppointment(ctx context.Context, owner reconcile.Owner, event calendar.Event) error {
	return s.withSession(ctx, "cancel_appointment", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		_, err := gw.Delete(ctx, []string{event.UID}, false)
		return err
	})
}

// JoinAppointment adds a visitor to an existing multi-visitor appointment.
// The modify is stored twice; a single pass leaves the new attendee's
// accepted status behind on some node versions.
func (s *CalendarService) JoinAppointment(ctx context.Context, owner reconcile.Owner, visitor reconcile.Visitor, start, end time.Time) (calendar.Event, error) {
	var joined calendar.Event
	err := s.withSession(ctx, "join_appointment", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		event, err := s.findAppointment(ctx, gw, owner, start, end)
		if err != nil {
			return err
		}
		if event.VisitorLimit < 2 {
			return ErrVisitorLimit
		}
		if event.AcceptedVisitorCount() >= event.VisitorLimit {
			return ErrVisitorLimit
		}
		if _, already := reconcile.FindVisitorAttendee(event, visitor); already {
			return ErrVisitorLimit
		}

		joined = reconcile.AddVisitor(event, visitor)
		for i := 0; i < 2; i++ {
			if _, err := gw.StoreEvent(ctx, gateway.ModifyFlags(), joined); err != nil {
				return fmt.Errorf("join appointment %s: %w", joined.UID, err)
			}
		}
		return nil
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return joined, nil
}

// LeaveAppointment removes the visitor's attendee line from an appointment
// they previously joined. The event is refetched first so the removal works
// from current remote state rather than the caller's stale copy.
func (s *CalendarService) LeaveAppointment(ctx context.Context, owner reconcile.Owner, visitor reconcile.Visitor, start, end time.Time) (calendar.Event, error) {
	var remaining calendar.Event
	err := s.withSession(ctx, "leave_appointment", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		event, err := s.findAppointment(ctx, gw, owner, start, end)
		if err != nil {
			return err
		}
		attendee, ok := reconcile.FindVisitorAttendee(event, visitor)
		if !ok {
			return ErrNotJoined
		}

		remaining = event.RemoveAttendee(attendee)
		if _, err := gw.StoreEvent(ctx, gateway.ReplaceFlags(), remaining); err != nil {
			return fmt.Errorf("leave appointment %s: %w", remaining.UID, err)
		}
		return nil
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return remaining, nil
}

// CheckForConflicts reports whether the account has a conflicting commitment
// in the window. The fetch starts one minute late: the remote range query
// includes events that end exactly at the window start, which do not
// actually overlap it.
func (s *CalendarService) CheckForConflicts(ctx context.Context, account directory.Account, start, end time.Time) error {
	return s.withSession(ctx, "check_conflicts", account, func(ctx context.Context, gw *gateway.Gateway) error {
		doc, err := gw.FetchRange(ctx, account.LoginID(), start.Add(time.Minute), end)
		if err != nil {
			return err
		}
		if reconcile.ConflictExists(account, doc) {
			return ErrConflictExists
		}
		return nil
	})
}

// ReflectAvailability rewrites the availability markers on the owner's
// calendar to mirror the given blocks.
func (s *CalendarService) ReflectAvailability(ctx context.Context, owner reconcile.Owner, blocks []reconcile.AvailableBlock) error {
	return s.withSession(ctx, "reflect_availability", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		return s.engine.SyncReflections(ctx, gw, owner, blocks)
	})
}

// PurgeReflections removes every availability marker in the window.
func (s *CalendarService) PurgeReflections(ctx context.Context, owner reconcile.Owner, start, end time.Time) error {
	return s.withSession(ctx, "purge_reflections", owner.Account, func(ctx context.Context, gw *gateway.Gateway) error {
		return s.engine.PurgeReflections(ctx, gw, owner, start, end)
	})
}

// AccountGUID resolves the remote GUID for an account: the cached directory
// attribute when present, otherwise a handle lookup against the account's
// node, cached for next time.
func (s *CalendarService) AccountGUID(ctx context.Context, account directory.Account) (string, error) {
	if guid := account.GUID(); guid != "" {
		return guid, nil
	}

	var guid string
	err := s.withSession(ctx, "account_guid", account, func(ctx context.Context, gw *gateway.Gateway) error {
		handle, err := gw.LookupHandle(ctx, account.LoginID())
		if err != nil {
			return err
		}
		guid = handle.GUID
		return nil
	})
	if err != nil {
		return "", err
	}

	if s.guids != nil && guid != "" {
		if cacheErr := s.guids.SetAttribute(ctx, account.UniqueID, directory.AttrGUID, guid); cacheErr != nil {
			s.logger.WarnContext(ctx, "could not cache resolved GUID",
				"account", account.UniqueID, "error", cacheErr)
		}
	}
	return guid, nil
}

// findAppointment fetches the owner's window and picks the managed
// appointment matching it exactly.
func (s *CalendarService) findAppointment(ctx context.Context, gw *gateway.Gateway, owner reconcile.Owner, start, end time.Time) (calendar.Event, error) {
	doc, err := gw.FetchRange(ctx, owner.Account.LoginID(), start, end)
	if err != nil {
		return calendar.Event{}, err
	}
	for _, event := range doc.Events {
		if !event.Appointment {
			continue
		}
		if event.Start.Equal(start) && event.End.Equal(end) {
			return event, nil
		}
	}
	return calendar.Event{}, ErrAppointmentNotFound
}

// withSession runs fn inside the acquire/bind/release bracket for the
// account's node and classifies the outcome.
func (s *CalendarService) withSession(ctx context.Context, op string, account directory.Account, fn func(ctx context.Context, gw *gateway.Gateway) error) error {
	nodeID := account.NodeID()
	node, ok := s.registry.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %q for account %s", ErrUnknownNode, nodeID, account.Username)
	}

	logger := s.logger.With("op", op, "op_id", s.idGenerator(), "node", node.ID, "account", account.Username)

	session, err := s.sessions.Acquire(ctx, node)
	if err != nil {
		logger.WarnContext(ctx, "could not acquire session", "error", err)
		return err
	}

	invalidate := false
	defer func() {
		s.sessions.Release(node, session, invalidate)
	}()

	started := s.now()
	err = session.SetIdentity(ctx, account.LoginID())
	if err == nil {
		err = fn(ctx, gateway.New(session, logger))
	}
	err = s.classify(node, err)
	if IsSessionFault(err) {
		invalidate = true
	}

	logger.DebugContext(ctx, "calendar operation finished", "elapsed", s.now().Sub(started), "fault", err != nil)
	return err
}

// classify sorts an operation error into the session/request fault taxonomy.
// Parser failures stay unwrapped: a truncated document says nothing about
// the session's health.
func (s *CalendarService) classify(node remote.Node, err error) error {
	if err == nil {
		return nil
	}
	if remote.IsSessionFault(err) {
		return &SessionFaultError{Node: node.ID, Err: err}
	}

	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == remote.StatusCannotBookAttendee {
		return &RequestFaultError{Op: statusErr.Op, Err: fmt.Errorf("%w: %v", ErrAttendeeUnbookable, err)}
	}
	return err
}
