package reconcile

import (
	"fmt"
	"time"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
)

const (
	statusConfirmed = "CONFIRMED"
	classPrivate    = "PRIVATE"
)

// BuildAppointment constructs the managed appointment for a visitor booking
// an owner's available block. The event is not yet stored and carries no
// UID; storage assigns one.
//
// Single-visitor blocks get a personalized title and a description naming
// the visitor; group blocks keep the bare title, since attendees come and
// go independently.
func BuildAppointment(owner Owner, visitor Visitor, block AvailableBlock, start, end time.Time) calendar.Event {
	event := calendar.Event{
		Summary:      owner.MeetingPrefix,
		Start:        start,
		End:          end,
		Status:       statusConfirmed,
		Class:        classPrivate,
		EventType:    calendar.EventTypeAppointment,
		Appointment:  true,
		VisitorLimit: block.VisitorLimit,
	}

	if block.VisitorLimit == 1 {
		event.Summary = fmt.Sprintf("%s with %s", owner.MeetingPrefix, visitor.Account.Name())
		event.Description = fmt.Sprintf("%s (%s)", visitor.Account.Name(), visitor.Account.EmailAddress())
	}

	if block.Location != "" {
		event.Location = block.Location
	} else {
		event.Location = owner.PreferredLocation
	}

	event.Attendees = appointmentAttendees(owner, visitor)
	if owner.Account.Kind == directory.KindResource {
		// Resource calendars need an explicit organizer line; without one
		// the remote store files the event under the admin identity.
		organizer := resourceOrganizer(owner.Account)
		event.Organizer = &organizer
	}

	return event
}

// AddVisitor returns the event with the visitor joined as an accepted
// attendee. Joining an appointment the visitor already attends is the
// caller's error to catch.
func AddVisitor(event calendar.Event, visitor Visitor) calendar.Event {
	out := event
	out.Attendees = append(append([]calendar.Attendee(nil), event.Attendees...), visitorAttendee(visitor.Account))
	return out
}

// FindVisitorAttendee locates the visitor's attendee line on an event.
func FindVisitorAttendee(event calendar.Event, visitor Visitor) (calendar.Attendee, bool) {
	for _, attendee := range event.Attendees {
		if attendee.Role == calendar.RoleOwner {
			continue
		}
		if AttendeeMatches(attendee, visitor.Account) {
			return attendee, true
		}
	}
	return calendar.Attendee{}, false
}

func appointmentAttendees(owner Owner, visitor Visitor) []calendar.Attendee {
	if owner.Account.SamePerson(visitor.Account) {
		// The owner booking themselves collapses to one attendee line
		// carrying both roles.
		both := ownerAttendee(owner.Account)
		both.Role = calendar.RoleBoth
		return []calendar.Attendee{both}
	}
	return []calendar.Attendee{
		ownerAttendee(owner.Account),
		visitorAttendee(visitor.Account),
	}
}

func ownerAttendee(account directory.Account) calendar.Attendee {
	return calendar.Attendee{
		CommonName: account.Name(),
		Email:      account.EmailAddress(),
		Role:       calendar.RoleOwner,
		PartStat:   calendar.PartStatAccepted,
		GUID:       account.GUID(),
		Resource:   account.Kind == directory.KindResource,
	}
}

func visitorAttendee(account directory.Account) calendar.Attendee {
	return calendar.Attendee{
		CommonName: account.Name(),
		Email:      account.EmailAddress(),
		Role:       calendar.RoleVisitor,
		PartStat:   calendar.PartStatAccepted,
		GUID:       account.GUID(),
	}
}

func resourceOrganizer(account directory.Account) calendar.Attendee {
	return calendar.Attendee{
		CommonName: account.Name(),
		Email:      account.EmailAddress(),
		GUID:       account.GUID(),
		Resource:   true,
	}
}
