package reconcile

import (
	"strings"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
)

// AttendeeMatches reports whether an attendee line refers to the given
// account. Personal accounts match on display name plus email; resource
// accounts additionally match resource-attendee lines on resource name
// alone, since the remote store records those without a stable address.
func AttendeeMatches(attendee calendar.Attendee, account directory.Account) bool {
	if account.Kind == directory.KindResource && attendee.Resource {
		if attendee.CommonName == account.Name() {
			return true
		}
	}
	return attendee.CommonName == account.Name() &&
		strings.EqualFold(attendee.Email, account.EmailAddress())
}

// WillCauseConflict reports whether an event on the account's own agenda
// blocks a new booking in the same window. Only appointment-type entries
// count; daily notes, holidays and day events never block. Two
// participations are exempt: marked free time (X-SHOWASFREE=FREE) and
// invitations the account has not acted on (NEEDS-ACTION). An event the
// account does not participate in at all does not conflict, even when it
// was returned on their agenda. A resource-delegate line matching a
// resource account conflicts unconditionally; the room is committed no
// matter what status the line carries.
func WillCauseConflict(account directory.Account, event calendar.Event) bool {
	if event.EventType != calendar.EventTypeAppointment {
		return false
	}
	for _, attendee := range event.Attendees {
		if attendee.Resource {
			if account.Kind == directory.KindResource && attendee.CommonName == account.Name() {
				return true
			}
			continue
		}
		if !AttendeeMatches(attendee, account) {
			continue
		}
		if attendee.ShowAsFree {
			return false
		}
		if attendee.PartStat == calendar.PartStatNeedsAction {
			return false
		}
		return true
	}
	return false
}

// ConflictExists reports whether any event in the fetched window conflicts
// for the account. Availability reflections never conflict; they are the
// assistant's own markers.
func ConflictExists(account directory.Account, doc calendar.Document) bool {
	for _, event := range doc.Events {
		if event.Reflection {
			continue
		}
		if WillCauseConflict(account, event) {
			return true
		}
	}
	return false
}
