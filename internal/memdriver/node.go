// Package memdriver provides an in-memory calendar node speaking the wire
// connection interface. It backs the "memory" driver in the service binary
// and stands in for a real node in tests.
package memdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/remote"
)

// Node keeps per-login calendars and mimics the remote store's observable
// quirks: created events come back with fresh UIDs and needs-action
// attendees, range queries include events ending exactly at the range
// start, and stored events are filed onto every attendee calendar the node
// knows.
//
// Knobs let tests rehearse failure: FailConnect refuses dials, Stale fails
// the validation probe, RefuseInvitations rejects stores the way a node
// refuses an unbookable attendee.
type Node struct {
	mu       sync.Mutex
	accounts map[string]remote.Handle   // login -> handle
	byEmail  map[string]string          // email -> login
	events   map[string]calendar.Event  // uid -> event
	members  map[string]map[string]bool // uid -> logins the event is filed under

	FailConnect       bool
	Stale             bool
	RefuseInvitations bool

	Connects    int
	Disconnects int
}

// New returns an empty node.
func New() *Node {
	return &Node{
		accounts: make(map[string]remote.Handle),
		byEmail:  make(map[string]string),
		events:   make(map[string]calendar.Event),
		members:  make(map[string]map[string]bool),
	}
}

// AddAccount registers a login the node will accept as an identity.
func (m *Node) AddAccount(login, guid, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[login] = remote.Handle{GUID: guid, Email: email}
	if email != "" {
		m.byEmail[email] = login
	}
}

// SeedEvent files an event directly onto a login's calendar, bypassing the
// store path. A missing UID gets one assigned; the UID is returned.
func (m *Node) SeedEvent(login string, event calendar.Event) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.UID == "" {
		event = event.WithUID(uuid.NewString())
	}
	m.fileEventLocked(login, event)
	return event.UID
}

// Event returns the stored event for a UID.
func (m *Node) Event(uid string) (calendar.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[uid]
	return event, ok
}

// EventCount returns the number of events on a login's calendar.
func (m *Node) EventCount(login string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, logins := range m.members {
		if logins[login] {
			count++
		}
	}
	return count
}

// Dial implements remote.Dialer.
func (m *Node) Dial(_ context.Context, node remote.Node) (remote.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailConnect {
		return nil, fmt.Errorf("dial %s: connection refused", node.Address)
	}
	m.Connects++
	return &conn{node: m}, nil
}

func (m *Node) fileEventLocked(login string, event calendar.Event) {
	m.events[event.UID] = event
	logins, ok := m.members[event.UID]
	if !ok {
		logins = make(map[string]bool)
		m.members[event.UID] = logins
	}
	logins[login] = true
	for _, attendee := range event.Attendees {
		if other, known := m.byEmail[attendee.Email]; known {
			logins[other] = true
		}
	}
}

// conn is one dialled connection; it carries the acting identity.
type conn struct {
	node     *Node
	identity string
}

func (c *conn) SetIdentity(_ context.Context, loginID string) error {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	if _, ok := c.node.accounts[loginID]; !ok {
		return &remote.StatusError{Code: remote.StatusUnknownIdentity, Op: "set identity " + loginID}
	}
	c.identity = loginID
	return nil
}

func (c *conn) FetchEventsByRange(_ context.Context, flags remote.Flags, loginID string, start, end time.Time) (string, error) {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	if _, ok := c.node.accounts[loginID]; !ok {
		return "", &remote.StatusError{Code: remote.StatusUnknownIdentity, Op: "fetch for " + loginID}
	}

	var doc calendar.Document
	for uid, logins := range c.node.members {
		if !logins[loginID] {
			continue
		}
		event := c.node.events[uid]
		// The range is inclusive on both edges: an event ending exactly at
		// the query start is still returned.
		if event.End.Before(start) || event.Start.After(end) {
			continue
		}
		if flags.Has(remote.FlagFetchExcludeAppointments) && event.EventType == calendar.EventTypeAppointment {
			continue
		}
		if flags.Has(remote.FlagFetchExcludeDailyNotes) && event.EventType == calendar.EventTypeDailyNote {
			continue
		}
		doc.Events = append(doc.Events, event)
	}
	return calendar.Encode(doc), nil
}

func (c *conn) StoreEvents(_ context.Context, flags remote.Flags, payload string) (remote.StoreResult, error) {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	if c.identity == "" {
		return remote.StoreResult{}, &remote.StatusError{Code: remote.StatusUnknownIdentity, Op: "store without identity"}
	}
	if c.node.RefuseInvitations {
		return remote.StoreResult{}, &remote.StatusError{Code: remote.StatusCannotBookAttendee, Op: "store events"}
	}

	doc, err := calendar.Parse(payload)
	if err != nil {
		return remote.StoreResult{}, err
	}

	var result remote.StoreResult
	for _, event := range doc.Events {
		if flags.Has(remote.FlagStoreCreate) {
			event = event.WithUID(uuid.NewString())
			// New invitations land in needs-action state regardless of the
			// status the organizer sent; a follow-up modify persists it.
			for i := range event.Attendees {
				event.Attendees[i].PartStat = calendar.PartStatNeedsAction
			}
		} else {
			if event.UID == "" {
				return remote.StoreResult{}, &remote.StatusError{Code: remote.StatusInvalidUID, Op: "store without UID"}
			}
			if _, ok := c.node.events[event.UID]; !ok {
				return remote.StoreResult{}, &remote.StatusError{Code: remote.StatusInvalidUID, Op: "store " + event.UID}
			}
		}
		c.node.fileEventLocked(c.identity, event)
		result.UIDs = append(result.UIDs, event.UID)
	}
	return result, nil
}

func (c *conn) DeleteEvents(_ context.Context, flags remote.Flags, uids []string, _ remote.InstanceScope) (remote.DeleteResult, error) {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()

	var result remote.DeleteResult
	for _, uid := range uids {
		if _, ok := c.node.events[uid]; !ok {
			err := &remote.StatusError{Code: remote.StatusInvalidUID, Op: "delete " + uid}
			if !flags.Has(remote.FlagContinueOnError) {
				return remote.DeleteResult{}, err
			}
			if result.Failed == nil {
				result.Failed = make(map[string]error)
			}
			result.Failed[uid] = err
			continue
		}
		delete(c.node.events, uid)
		delete(c.node.members, uid)
		result.Deleted++
	}
	return result, nil
}

func (c *conn) Handle(_ context.Context, loginID string) (remote.Handle, error) {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	handle, ok := c.node.accounts[loginID]
	if !ok {
		return remote.Handle{}, &remote.StatusError{Code: remote.StatusUnknownIdentity, Op: "handle " + loginID}
	}
	return handle, nil
}

func (c *conn) Capabilities(_ context.Context) (string, error) {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	if c.node.Stale {
		return "", &remote.StatusError{Code: remote.StatusConnectionReset, Op: "capabilities"}
	}
	return "VCAL/1.0", nil
}

func (c *conn) Disconnect(_ context.Context) error {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	c.node.Disconnects++
	return nil
}
