package reconcile

import (
	"context"
	"fmt"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
	"github.com/example/calendar-bridge/internal/gateway"
	"github.com/example/calendar-bridge/internal/notify"
)

// ResolveDeclines walks a fetched agenda and applies the decline rules to
// every managed appointment, mutating the remote store as needed:
//
//   - The owner declining cancels the appointment outright.
//   - A visitor declining on a multi-visitor appointment that still has
//     other accepted visitors removes just that attendee.
//   - A visitor declining otherwise cancels the appointment, since nobody
//     is left to meet.
//
// Only appointments the caller attends as OWNER or BOTH are candidates; an
// appointment the caller merely visits belongs to someone else's agenda and
// must not be touched here. The returned document reflects the
// post-resolution state, so callers can serve it without a second fetch.
// Unmanaged events pass through untouched.
func (e *Engine) ResolveDeclines(ctx context.Context, gw *gateway.Gateway, doc calendar.Document, owner Owner) (calendar.Document, error) {
	resolved := calendar.Document{Events: make([]calendar.Event, 0, len(doc.Events))}

	for _, event := range doc.Events {
		if !event.Appointment || !attendingAsOwner(event, owner.Account) {
			resolved.Events = append(resolved.Events, event)
			continue
		}

		kept, err := e.resolveEvent(ctx, gw, event, owner)
		if err != nil {
			return calendar.Document{}, err
		}
		if kept != nil {
			resolved.Events = append(resolved.Events, *kept)
		}
	}

	return resolved, nil
}

// attendingAsOwner reports whether the account holds the OWNER or BOTH
// role on the event's attendee list.
func attendingAsOwner(event calendar.Event, account directory.Account) bool {
	for _, attendee := range event.Attendees {
		if attendee.Role != calendar.RoleOwner && attendee.Role != calendar.RoleBoth {
			continue
		}
		if AttendeeMatches(attendee, account) {
			return true
		}
	}
	return false
}

// resolveEvent applies the decline rules to one appointment. A nil event
// means the appointment was cancelled.
func (e *Engine) resolveEvent(ctx context.Context, gw *gateway.Gateway, event calendar.Event, owner Owner) (*calendar.Event, error) {
	current := event

	for _, attendee := range event.Attendees {
		if attendee.PartStat != calendar.PartStatDeclined {
			continue
		}

		if attendee.Role == calendar.RoleOwner || attendee.Role == calendar.RoleBoth {
			if err := e.cancelAppointment(ctx, gw, current, owner, notify.ReasonOwnerDeclined); err != nil {
				return nil, err
			}
			return nil, nil
		}

		// Declined visitor. The appointment survives only when it was
		// advertised for multiple visitors and others are still accepted.
		if current.VisitorLimit > 1 && current.AcceptedVisitorCount() > 1 {
			current = current.RemoveAttendee(attendee)
			if _, err := gw.StoreEvent(ctx, gateway.ReplaceFlags(), current); err != nil {
				return nil, fmt.Errorf("remove declined attendee from %s: %w", current.UID, err)
			}
			e.notifier.AttendeeRemoved(ctx, notify.AttendeeRemoval{
				Owner:         owner.Account.Username,
				UID:           current.UID,
				Summary:       current.Summary,
				Start:         current.Start,
				End:           current.End,
				AttendeeName:  attendee.CommonName,
				AttendeeEmail: attendee.Email,
			})
			continue
		}

		if err := e.cancelAppointment(ctx, gw, current, owner, notify.ReasonNoRemainingVisitors); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &current, nil
}

func (e *Engine) cancelAppointment(ctx context.Context, gw *gateway.Gateway, event calendar.Event, owner Owner, reason notify.CancellationReason) error {
	if _, err := gw.Delete(ctx, []string{event.UID}, false); err != nil {
		return fmt.Errorf("cancel appointment %s: %w", event.UID, err)
	}
	e.logger.InfoContext(ctx, "cancelled appointment during decline resolution",
		"owner", owner.Account.Username, "uid", event.UID, "reason", string(reason))
	e.notifier.AppointmentCancelled(ctx, notify.AppointmentCancellation{
		Owner:   owner.Account.Username,
		UID:     event.UID,
		Summary: event.Summary,
		Start:   event.Start,
		End:     event.End,
		Reason:  reason,
	})
	return nil
}
