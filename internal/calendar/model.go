package calendar

import "time"

// Role identifies how an attendee participates in a managed appointment.
// It is carried on the wire as the X-ASSIST-ROLE attendee parameter.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleVisitor Role = "VISITOR"
	// RoleBoth is used when the schedule owner books an appointment with
	// themselves; the single attendee carries both roles.
	RoleBoth Role = "BOTH"
)

// PartStat is the iCalendar participation status of an attendee.
type PartStat string

const (
	PartStatNeedsAction PartStat = "NEEDS-ACTION"
	PartStatAccepted    PartStat = "ACCEPTED"
	PartStatDeclined    PartStat = "DECLINED"
)

// Event type values carried on the X-EVENTTYPE property.
const (
	EventTypeAppointment = "APPOINTMENT"
	EventTypeDailyNote   = "DAILY NOTE"
)

// Attendee is one participant entry on an Event. Resource delegates are
// carried on a distinct property name (X-RESOURCE-ATTENDEE) but share the
// same value shape.
type Attendee struct {
	CommonName string
	Email      string
	Role       Role
	PartStat   PartStat
	ShowAsFree bool
	GUID       string
	Resource   bool
}

// Event is one calendar entry. Appointment marks entries managed by the
// scheduling assistant; Reflection marks synthetic availability markers.
// Unknown properties encountered during parsing are preserved verbatim in
// Extra so a fetched event can be re-stored without loss.
type Event struct {
	UID          string
	Summary      string
	Description  string
	Location     string
	Start        time.Time
	End          time.Time
	Attendees    []Attendee
	Organizer    *Attendee
	EventType    string
	Appointment  bool
	VisitorLimit int
	Reflection   bool
	Status       string
	Class        string
	Extra        []string
}

// Document is an ordered collection of events as returned by a range fetch.
type Document struct {
	Events []Event
}

// AcceptedVisitorCount returns the number of non-owner attendees currently
// in ACCEPTED status.
func (e Event) AcceptedVisitorCount() int {
	count := 0
	for _, a := range e.Attendees {
		if a.Role == RoleOwner {
			continue
		}
		if a.PartStat == PartStatAccepted {
			count++
		}
	}
	return count
}

// RemoveAttendee returns a copy of the event without the given attendee.
// Matching is by property identity (name, email and role), the same triple
// the wire format uses to distinguish attendee lines.
func (e Event) RemoveAttendee(target Attendee) Event {
	out := e
	out.Attendees = make([]Attendee, 0, len(e.Attendees))
	removed := false
	for _, a := range e.Attendees {
		if !removed && a.CommonName == target.CommonName && a.Email == target.Email && a.Role == target.Role {
			removed = true
			continue
		}
		out.Attendees = append(out.Attendees, a)
	}
	return out
}

// WithUID returns a copy of the event tagged with the given UID.
func (e Event) WithUID(uid string) Event {
	out := e
	out.UID = uid
	return out
}

// UIDs collects the UID of every event in the document.
func (d Document) UIDs() []string {
	uids := make([]string, 0, len(d.Events))
	for _, e := range d.Events {
		if e.UID != "" {
			uids = append(uids, e.UID)
		}
	}
	return uids
}
