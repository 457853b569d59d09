package reconcile

import (
	"testing"
	"time"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
)

func blockAt(limit int, location string) AvailableBlock {
	return AvailableBlock{
		Start:        time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC),
		End:          time.Date(2025, time.March, 3, 14, 30, 0, 0, time.UTC),
		VisitorLimit: limit,
		Location:     location,
	}
}

func TestBuildAppointmentSingleVisitor(t *testing.T) {
	owner := testOwner()
	owner.PreferredLocation = "Room 101"
	visitor := Visitor{Account: visitorAccount()}
	block := blockAt(1, "")

	event := BuildAppointment(owner, visitor, block, block.Start, block.End)

	if event.Summary != "Office Hours with Ada Lovelace" {
		t.Errorf("Summary = %q", event.Summary)
	}
	if event.Description == "" {
		t.Error("single-visitor appointment should carry a description")
	}
	if event.Location != "Room 101" {
		t.Errorf("Location = %q, want the owner preference", event.Location)
	}
	if event.Class != "PRIVATE" || event.Status != "CONFIRMED" {
		t.Errorf("Class/Status = %q/%q", event.Class, event.Status)
	}
	if !event.Appointment || event.EventType != calendar.EventTypeAppointment {
		t.Error("appointment markers missing")
	}
	if event.UID != "" {
		t.Error("new appointment must not carry a UID; storage assigns one")
	}
	if len(event.Attendees) != 2 {
		t.Fatalf("attendees = %+v", event.Attendees)
	}
	if event.Attendees[0].Role != calendar.RoleOwner || event.Attendees[1].Role != calendar.RoleVisitor {
		t.Errorf("roles = %v/%v", event.Attendees[0].Role, event.Attendees[1].Role)
	}
	for _, attendee := range event.Attendees {
		if attendee.PartStat != calendar.PartStatAccepted {
			t.Errorf("attendee %s not accepted", attendee.Email)
		}
	}
}

func TestBuildAppointmentGroupBlock(t *testing.T) {
	owner := testOwner()
	visitor := Visitor{Account: visitorAccount()}
	block := blockAt(5, "Lab 3")

	event := BuildAppointment(owner, visitor, block, block.Start, block.End)

	if event.Summary != "Office Hours" {
		t.Errorf("group appointment title should stay bare, got %q", event.Summary)
	}
	if event.Description != "" {
		t.Errorf("group appointment should carry no visitor description, got %q", event.Description)
	}
	if event.Location != "Lab 3" {
		t.Errorf("Location = %q, want block override", event.Location)
	}
	if event.VisitorLimit != 5 {
		t.Errorf("VisitorLimit = %d", event.VisitorLimit)
	}
}

func TestBuildAppointmentSelfBooking(t *testing.T) {
	owner := testOwner()
	visitor := Visitor{Account: owner.Account}

	event := BuildAppointment(owner, visitor, blockAt(1, ""), blockAt(1, "").Start, blockAt(1, "").End)

	if len(event.Attendees) != 1 {
		t.Fatalf("self booking should collapse to one attendee, got %+v", event.Attendees)
	}
	if event.Attendees[0].Role != calendar.RoleBoth {
		t.Errorf("Role = %v, want BOTH", event.Attendees[0].Role)
	}
}

func TestBuildAppointmentResourceOwner(t *testing.T) {
	owner := Owner{
		Account: directory.Account{
			UniqueID:     "node-1:30",
			Username:     "room-a",
			Kind:         directory.KindResource,
			ResourceName: "Conference Room A",
			Attributes:   map[string]string{directory.AttrGUID: "guid-room"},
		},
		MeetingPrefix: "Room Booking",
	}
	visitor := Visitor{Account: visitorAccount()}
	block := blockAt(1, "")

	event := BuildAppointment(owner, visitor, block, block.Start, block.End)

	if event.Organizer == nil {
		t.Fatal("resource-owned appointment needs an organizer line")
	}
	if !event.Organizer.Resource || event.Organizer.CommonName != "Conference Room A" {
		t.Errorf("organizer = %+v", event.Organizer)
	}
	if !event.Attendees[0].Resource {
		t.Error("owner attendee should be a resource attendee")
	}
	if event.Attendees[0].Email != "guid-room@email.invalid" {
		t.Errorf("resource email fallback = %q", event.Attendees[0].Email)
	}
}

func TestAddAndFindVisitor(t *testing.T) {
	owner := testOwner()
	first := Visitor{Account: visitorAccount()}
	second := Visitor{Account: directory.Account{
		UniqueID:    "node-1:40",
		Username:    "aturing",
		Kind:        directory.KindUser,
		DisplayName: "Alan Turing",
		Email:       "aturing@example.edu",
	}}
	block := blockAt(5, "")

	event := BuildAppointment(owner, first, block, block.Start, block.End)
	joined := AddVisitor(event, second)

	if len(event.Attendees) != 2 {
		t.Error("AddVisitor mutated the original event")
	}
	if len(joined.Attendees) != 3 {
		t.Fatalf("attendees after join = %+v", joined.Attendees)
	}
	if _, ok := FindVisitorAttendee(joined, second); !ok {
		t.Error("joined visitor not found")
	}
	if _, ok := FindVisitorAttendee(event, second); ok {
		t.Error("visitor found on event they never joined")
	}
}
