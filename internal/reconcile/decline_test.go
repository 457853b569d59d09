package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
	"github.com/example/calendar-bridge/internal/gateway"
	"github.com/example/calendar-bridge/internal/notify"
	"github.com/example/calendar-bridge/internal/remote"
)

// recordingConn captures store and delete traffic for assertions.
type recordingConn struct {
	mu       sync.Mutex
	deleted  []string
	replaced []calendar.Event
}

func (c *recordingConn) SetIdentity(context.Context, string) error { return nil }

func (c *recordingConn) FetchEventsByRange(context.Context, remote.Flags, string, time.Time, time.Time) (string, error) {
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil
}

func (c *recordingConn) StoreEvents(_ context.Context, _ remote.Flags, payload string) (remote.StoreResult, error) {
	doc, err := calendar.Parse(payload)
	if err != nil {
		return remote.StoreResult{}, err
	}
	c.mu.Lock()
	c.replaced = append(c.replaced, doc.Events...)
	c.mu.Unlock()
	return remote.StoreResult{UIDs: doc.UIDs()}, nil
}

func (c *recordingConn) DeleteEvents(_ context.Context, _ remote.Flags, uids []string, _ remote.InstanceScope) (remote.DeleteResult, error) {
	c.mu.Lock()
	c.deleted = append(c.deleted, uids...)
	c.mu.Unlock()
	return remote.DeleteResult{Deleted: len(uids)}, nil
}

func (c *recordingConn) Handle(context.Context, string) (remote.Handle, error) {
	return remote.Handle{}, nil
}
func (c *recordingConn) Capabilities(context.Context) (string, error) { return "VCAL/1.0", nil }
func (c *recordingConn) Disconnect(context.Context) error             { return nil }

// recordingPublisher captures notifications.
type recordingPublisher struct {
	mu            sync.Mutex
	cancellations []notify.AppointmentCancellation
	removals      []notify.AttendeeRemoval
}

func (p *recordingPublisher) AppointmentCancelled(_ context.Context, n notify.AppointmentCancellation) {
	p.mu.Lock()
	p.cancellations = append(p.cancellations, n)
	p.mu.Unlock()
}

func (p *recordingPublisher) AttendeeRemoved(_ context.Context, n notify.AttendeeRemoval) {
	p.mu.Lock()
	p.removals = append(p.removals, n)
	p.mu.Unlock()
}

func testOwner() Owner {
	return Owner{
		Account: directory.Account{
			UniqueID:    "node-1:10",
			Username:    "ghopper",
			Kind:        directory.KindUser,
			DisplayName: "Grace Hopper",
			Email:       "ghopper@example.edu",
		},
		MeetingPrefix: "Office Hours",
	}
}

func appointmentWith(uid string, limit int, attendees ...calendar.Attendee) calendar.Event {
	return calendar.Event{
		UID:          uid,
		Summary:      "Office Hours",
		Start:        time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC),
		End:          time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC),
		Appointment:  true,
		VisitorLimit: limit,
		Attendees:    attendees,
	}
}

func resolveWith(t *testing.T, doc calendar.Document) (calendar.Document, *recordingConn, *recordingPublisher) {
	t.Helper()
	conn := &recordingConn{}
	publisher := &recordingPublisher{}
	engine := NewEngine(publisher, nil)
	gw := gateway.New(remote.NewSession(remote.Node{ID: "node-1"}, conn), nil)

	resolved, err := engine.ResolveDeclines(context.Background(), gw, doc, testOwner())
	if err != nil {
		t.Fatalf("ResolveDeclines: %v", err)
	}
	return resolved, conn, publisher
}

func TestOwnerDeclineCancelsAppointment(t *testing.T) {
	event := appointmentWith("evt-1", 1,
		calendar.Attendee{CommonName: "Grace Hopper", Email: "ghopper@example.edu", Role: calendar.RoleOwner, PartStat: calendar.PartStatDeclined},
		calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatAccepted},
	)

	resolved, conn, publisher := resolveWith(t, calendar.Document{Events: []calendar.Event{event}})

	if len(resolved.Events) != 0 {
		t.Errorf("cancelled appointment still present: %+v", resolved.Events)
	}
	if len(conn.deleted) != 1 || conn.deleted[0] != "evt-1" {
		t.Errorf("deleted = %v", conn.deleted)
	}
	if len(publisher.cancellations) != 1 || publisher.cancellations[0].Reason != notify.ReasonOwnerDeclined {
		t.Errorf("cancellations = %+v", publisher.cancellations)
	}
}

func TestSoleVisitorDeclineCancelsAppointment(t *testing.T) {
	event := appointmentWith("evt-2", 1,
		calendar.Attendee{CommonName: "Grace Hopper", Email: "ghopper@example.edu", Role: calendar.RoleOwner, PartStat: calendar.PartStatAccepted},
		calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatDeclined},
	)

	resolved, conn, publisher := resolveWith(t, calendar.Document{Events: []calendar.Event{event}})

	if len(resolved.Events) != 0 {
		t.Error("appointment with no remaining visitors should be cancelled")
	}
	if len(conn.deleted) != 1 {
		t.Errorf("deleted = %v", conn.deleted)
	}
	if len(publisher.cancellations) != 1 || publisher.cancellations[0].Reason != notify.ReasonNoRemainingVisitors {
		t.Errorf("cancellations = %+v", publisher.cancellations)
	}
}

func TestVisitorDeclineOnGroupAppointmentRemovesAttendee(t *testing.T) {
	event := appointmentWith("evt-3", 5,
		calendar.Attendee{CommonName: "Grace Hopper", Email: "ghopper@example.edu", Role: calendar.RoleOwner, PartStat: calendar.PartStatAccepted},
		calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatDeclined},
		calendar.Attendee{CommonName: "Alan Turing", Email: "aturing@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatAccepted},
		calendar.Attendee{CommonName: "Edsger Dijkstra", Email: "edsger@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatAccepted},
	)

	resolved, conn, publisher := resolveWith(t, calendar.Document{Events: []calendar.Event{event}})

	if len(resolved.Events) != 1 {
		t.Fatalf("appointment should survive, got %d events", len(resolved.Events))
	}
	if len(resolved.Events[0].Attendees) != 3 {
		t.Errorf("attendees = %+v", resolved.Events[0].Attendees)
	}
	if len(conn.deleted) != 0 {
		t.Errorf("nothing should be deleted, got %v", conn.deleted)
	}
	if len(conn.replaced) != 1 || len(conn.replaced[0].Attendees) != 3 {
		t.Errorf("replace-store traffic = %+v", conn.replaced)
	}
	if len(publisher.removals) != 1 || publisher.removals[0].AttendeeEmail != "ada@example.edu" {
		t.Errorf("removals = %+v", publisher.removals)
	}
}

func TestLastAcceptedVisitorDeclineCancelsGroupAppointment(t *testing.T) {
	// Multi-visitor block, but only one visitor remains accepted and they
	// declined: the appointment cannot survive.
	event := appointmentWith("evt-4", 5,
		calendar.Attendee{CommonName: "Grace Hopper", Email: "ghopper@example.edu", Role: calendar.RoleOwner, PartStat: calendar.PartStatAccepted},
		calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatDeclined},
	)

	resolved, conn, publisher := resolveWith(t, calendar.Document{Events: []calendar.Event{event}})

	if len(resolved.Events) != 0 {
		t.Error("appointment should be cancelled")
	}
	if len(conn.deleted) != 1 {
		t.Errorf("deleted = %v", conn.deleted)
	}
	if len(publisher.cancellations) != 1 || publisher.cancellations[0].Reason != notify.ReasonNoRemainingVisitors {
		t.Errorf("cancellations = %+v", publisher.cancellations)
	}
}

func TestUnmanagedEventsPassThroughUntouched(t *testing.T) {
	event := calendar.Event{
		UID:     "evt-plain",
		Summary: "department meeting",
		Attendees: []calendar.Attendee{
			{CommonName: "Grace Hopper", Email: "ghopper@example.edu", PartStat: calendar.PartStatDeclined},
		},
	}

	resolved, conn, publisher := resolveWith(t, calendar.Document{Events: []calendar.Event{event}})

	if len(resolved.Events) != 1 || resolved.Events[0].UID != "evt-plain" {
		t.Errorf("unmanaged event modified: %+v", resolved.Events)
	}
	if len(conn.deleted) != 0 || len(conn.replaced) != 0 {
		t.Error("unmanaged event produced remote traffic")
	}
	if len(publisher.cancellations)+len(publisher.removals) != 0 {
		t.Error("unmanaged event produced notifications")
	}
}

func TestAppointmentsTheCallerDoesNotOwnPassThrough(t *testing.T) {
	// Declined attendees on someone else's appointment are that owner's
	// problem; resolving the caller's agenda must leave them alone.
	visiting := appointmentWith("evt-visiting", 1,
		calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", Role: calendar.RoleOwner, PartStat: calendar.PartStatAccepted},
		calendar.Attendee{CommonName: "Grace Hopper", Email: "ghopper@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatAccepted},
		calendar.Attendee{CommonName: "Alan Turing", Email: "aturing@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatDeclined},
	)
	foreign := appointmentWith("evt-foreign", 1,
		calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", Role: calendar.RoleOwner, PartStat: calendar.PartStatAccepted},
		calendar.Attendee{CommonName: "Alan Turing", Email: "aturing@example.edu", Role: calendar.RoleVisitor, PartStat: calendar.PartStatDeclined},
	)

	resolved, conn, publisher := resolveWith(t, calendar.Document{Events: []calendar.Event{visiting, foreign}})

	if len(resolved.Events) != 2 {
		t.Fatalf("appointments the caller does not own were dropped: %+v", resolved.Events)
	}
	if len(resolved.Events[0].Attendees) != 3 || len(resolved.Events[1].Attendees) != 2 {
		t.Errorf("attendee lists rewritten: %+v", resolved.Events)
	}
	if len(conn.deleted) != 0 || len(conn.replaced) != 0 {
		t.Errorf("remote traffic for appointments the caller does not own: deleted=%v replaced=%+v", conn.deleted, conn.replaced)
	}
	if len(publisher.cancellations)+len(publisher.removals) != 0 {
		t.Error("notifications emitted for appointments the caller does not own")
	}
}

func TestBothRoleDeclineCancelsAppointment(t *testing.T) {
	event := appointmentWith("evt-5", 1,
		calendar.Attendee{CommonName: "Grace Hopper", Email: "ghopper@example.edu", Role: calendar.RoleBoth, PartStat: calendar.PartStatDeclined},
	)

	resolved, _, publisher := resolveWith(t, calendar.Document{Events: []calendar.Event{event}})

	if len(resolved.Events) != 0 {
		t.Error("self-booked appointment should be cancelled on decline")
	}
	if len(publisher.cancellations) != 1 || publisher.cancellations[0].Reason != notify.ReasonOwnerDeclined {
		t.Errorf("cancellations = %+v", publisher.cancellations)
	}
}
