package reconcile

import (
	"testing"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
)

func visitorAccount() directory.Account {
	return directory.Account{
		UniqueID:    "node-1:20",
		Username:    "ada",
		Kind:        directory.KindUser,
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.edu",
	}
}

func TestWillCauseConflict(t *testing.T) {
	account := visitorAccount()

	cases := []struct {
		name     string
		attendee calendar.Attendee
		want     bool
	}{
		{
			name:     "accepted busy participation conflicts",
			attendee: calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", PartStat: calendar.PartStatAccepted},
			want:     true,
		},
		{
			name:     "marked free time is exempt",
			attendee: calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", PartStat: calendar.PartStatAccepted, ShowAsFree: true},
			want:     false,
		},
		{
			name:     "pending invitation is exempt",
			attendee: calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", PartStat: calendar.PartStatNeedsAction},
			want:     false,
		},
		{
			name:     "case differences in email still match",
			attendee: calendar.Attendee{CommonName: "Ada Lovelace", Email: "Ada@Example.EDU", PartStat: calendar.PartStatAccepted},
			want:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := calendar.Event{EventType: calendar.EventTypeAppointment, Attendees: []calendar.Attendee{tc.attendee}}
			if got := WillCauseConflict(account, event); got != tc.want {
				t.Errorf("WillCauseConflict = %t, want %t", got, tc.want)
			}
		})
	}
}

func TestEventWithoutMatchingAttendeeDoesNotConflict(t *testing.T) {
	event := calendar.Event{
		EventType: calendar.EventTypeAppointment,
		Attendees: []calendar.Attendee{
			{CommonName: "Someone Else", Email: "other@example.edu", PartStat: calendar.PartStatAccepted},
		},
	}
	if WillCauseConflict(visitorAccount(), event) {
		t.Error("event the account does not participate in must not conflict")
	}
}

func TestNonAppointmentEntriesNeverConflict(t *testing.T) {
	account := visitorAccount()
	attendee := calendar.Attendee{CommonName: "Ada Lovelace", Email: "ada@example.edu", PartStat: calendar.PartStatAccepted}

	cases := []struct {
		name      string
		eventType string
	}{
		{name: "daily note", eventType: calendar.EventTypeDailyNote},
		{name: "untyped entry", eventType: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := calendar.Event{EventType: tc.eventType, Attendees: []calendar.Attendee{attendee}}
			if WillCauseConflict(account, event) {
				t.Errorf("%s reported as conflict", tc.name)
			}
		})
	}
}

func TestResourceAttendeeFallbackMatch(t *testing.T) {
	resource := directory.Account{
		UniqueID:     "node-1:30",
		Username:     "room-a",
		Kind:         directory.KindResource,
		ResourceName: "Conference Room A",
	}
	attendee := calendar.Attendee{CommonName: "Conference Room A", Email: "whatever@email.invalid", Resource: true}
	if !AttendeeMatches(attendee, resource) {
		t.Error("resource attendee should match on resource name alone")
	}

	// Delegate lines commit the room regardless of participation status.
	event := calendar.Event{EventType: calendar.EventTypeAppointment, Attendees: []calendar.Attendee{attendee}}
	if !WillCauseConflict(resource, event) {
		t.Error("resource-delegate line should conflict for the resource account")
	}

	// Only delegate lines match resource accounts; a plain attendee line
	// with the same name does not book the room.
	plain := calendar.Event{
		EventType: calendar.EventTypeAppointment,
		Attendees: []calendar.Attendee{{CommonName: "Conference Room A", Email: "other@example.edu", PartStat: calendar.PartStatAccepted}},
	}
	if WillCauseConflict(resource, plain) {
		t.Error("non-delegate attendee line should not conflict for the resource account")
	}
}

func TestConflictExistsSkipsReflections(t *testing.T) {
	account := visitorAccount()
	doc := calendar.Document{Events: []calendar.Event{
		{
			Reflection: true,
			EventType:  calendar.EventTypeAppointment,
			Attendees:  []calendar.Attendee{{CommonName: "Ada Lovelace", Email: "ada@example.edu", PartStat: calendar.PartStatAccepted}},
		},
	}}
	if ConflictExists(account, doc) {
		t.Error("availability reflections must never conflict")
	}

	doc.Events = append(doc.Events, calendar.Event{
		EventType: calendar.EventTypeAppointment,
		Attendees: []calendar.Attendee{{CommonName: "Ada Lovelace", Email: "ada@example.edu", PartStat: calendar.PartStatAccepted}},
	})
	if !ConflictExists(account, doc) {
		t.Error("real commitment should conflict")
	}
}
