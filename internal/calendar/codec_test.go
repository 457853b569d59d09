package calendar

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleEvent() Event {
	return Event{
		UID:     "evt-1",
		Summary: "Office Hours with Ada Lovelace",
		Start:   time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC),
		End:     time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC),
		Attendees: []Attendee{
			{CommonName: "Grace Hopper", Email: "ghopper@example.edu", Role: RoleOwner, PartStat: PartStatAccepted, GUID: "guid-owner"},
			{CommonName: "Ada Lovelace", Email: "ada@example.edu", Role: RoleVisitor, PartStat: PartStatAccepted},
		},
		EventType:    EventTypeAppointment,
		Appointment:  true,
		VisitorLimit: 1,
		Status:       "CONFIRMED",
		Class:        "PRIVATE",
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	original := sampleEvent()

	doc, err := Parse(Encode(Document{Events: []Event{original}}))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(doc.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(doc.Events))
	}

	got := doc.Events[0]
	if got.UID != original.UID {
		t.Errorf("UID = %q, want %q", got.UID, original.UID)
	}
	if got.Summary != original.Summary {
		t.Errorf("Summary = %q, want %q", got.Summary, original.Summary)
	}
	if !got.Start.Equal(original.Start) || !got.End.Equal(original.End) {
		t.Errorf("times = %v..%v, want %v..%v", got.Start, got.End, original.Start, original.End)
	}
	if !got.Appointment || got.VisitorLimit != 1 || got.EventType != EventTypeAppointment {
		t.Errorf("markers lost: %+v", got)
	}
	if len(got.Attendees) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(got.Attendees))
	}
	owner := got.Attendees[0]
	if owner.Role != RoleOwner || owner.PartStat != PartStatAccepted || owner.GUID != "guid-owner" {
		t.Errorf("owner attendee mangled: %+v", owner)
	}
	if got.Attendees[1].Email != "ada@example.edu" {
		t.Errorf("visitor email = %q", got.Attendees[1].Email)
	}
}

func TestParseUnfoldsContinuationLines(t *testing.T) {
	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:evt-folded",
		"SUMMARY:a very long",
		" and folded summary",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := doc.Events[0].Summary; got != "a very longand folded summary" {
		t.Fatalf("Summary = %q", got)
	}
}

func TestParsePreservesUnknownProperties(t *testing.T) {
	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:evt-extra",
		"X-SOMETHING-ELSE:keepme",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	event := doc.Events[0]
	if len(event.Extra) != 1 || event.Extra[0] != "X-SOMETHING-ELSE:keepme" {
		t.Fatalf("Extra = %v", event.Extra)
	}

	// Unknown properties survive a re-encode, so fetched events can be
	// stored back without loss.
	if !strings.Contains(Encode(Document{Events: []Event{event}}), "X-SOMETHING-ELSE:keepme") {
		t.Fatal("unknown property dropped on encode")
	}
}

func TestParseResourceAttendee(t *testing.T) {
	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:evt-res",
		"X-RESOURCE-ATTENDEE;CN=Conference Room A;PARTSTAT=ACCEPTED;X-ASSIST-ROLE=OWNER:mailto:room-a@email.invalid",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	attendee := doc.Events[0].Attendees[0]
	if !attendee.Resource {
		t.Error("resource flag not set")
	}
	if attendee.CommonName != "Conference Room A" || attendee.Role != RoleOwner {
		t.Errorf("attendee = %+v", attendee)
	}
}

func TestParseShowAsFree(t *testing.T) {
	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:evt-free",
		"ATTENDEE;CN=Grace Hopper;PARTSTAT=ACCEPTED;X-SHOWASFREE=FREE:mailto:ghopper@example.edu",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !doc.Events[0].Attendees[0].ShowAsFree {
		t.Error("ShowAsFree not decoded")
	}
}

func TestParseRejectsBrokenStructure(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing envelope", "BEGIN:VEVENT\r\nUID:u\r\nEND:VEVENT\r\n"},
		{"nested event", "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nBEGIN:VEVENT\r\nEND:VCALENDAR\r\n"},
		{"unterminated event", "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u\r\nEND:VCALENDAR\r\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			var malformed *MalformedDocumentError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedDocumentError, got %v", err)
			}
		})
	}
}

func TestEscapedTextRoundTrip(t *testing.T) {
	original := Event{
		UID:     "evt-escape",
		Summary: "planning; budget, and\nnext steps",
	}

	doc, err := Parse(EncodeEvent(original))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := doc.Events[0].Summary; got != original.Summary {
		t.Fatalf("Summary = %q, want %q", got, original.Summary)
	}
}

func TestRemoveAttendeeMatchesOnIdentityTriple(t *testing.T) {
	event := sampleEvent()
	removed := event.RemoveAttendee(event.Attendees[1])
	if len(removed.Attendees) != 1 {
		t.Fatalf("expected 1 attendee after removal, got %d", len(removed.Attendees))
	}
	if removed.Attendees[0].Role != RoleOwner {
		t.Fatalf("wrong attendee removed: %+v", removed.Attendees)
	}
	// Original is untouched.
	if len(event.Attendees) != 2 {
		t.Fatal("RemoveAttendee mutated its receiver")
	}
}

func TestAcceptedVisitorCountIgnoresOwnerAndDeclined(t *testing.T) {
	event := Event{Attendees: []Attendee{
		{Role: RoleOwner, PartStat: PartStatAccepted},
		{Role: RoleVisitor, PartStat: PartStatAccepted},
		{Role: RoleVisitor, PartStat: PartStatDeclined},
		{Role: RoleVisitor, PartStat: PartStatNeedsAction},
	}}
	if got := event.AcceptedVisitorCount(); got != 1 {
		t.Fatalf("AcceptedVisitorCount = %d, want 1", got)
	}
}
