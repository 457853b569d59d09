// Package reconcile holds the scheduling-assistant domain rules layered on
// top of raw calendar access: resolving declined attendees, mirroring
// availability blocks onto owner calendars, conflict detection and the
// construction of managed appointments.
package reconcile

import (
	"log/slog"
	"time"

	"github.com/example/calendar-bridge/internal/directory"
	"github.com/example/calendar-bridge/internal/notify"
)

// AvailableBlock is one advertised window an owner accepts bookings in.
type AvailableBlock struct {
	Start        time.Time
	End          time.Time
	VisitorLimit int
	Location     string
}

// Owner is a schedule owner: the account plus their scheduling preferences.
type Owner struct {
	Account directory.Account
	// MeetingPrefix is prepended to every appointment title.
	MeetingPrefix string
	// PreferredLocation is used when a block carries no location override.
	PreferredLocation string
}

// Visitor is the account booking time with an owner.
type Visitor struct {
	Account directory.Account
}

// Engine applies reconciliation rules through a gateway. It holds no
// per-account state and is safe for concurrent use.
type Engine struct {
	notifier notify.Publisher
	logger   *slog.Logger
}

// NewEngine wires an engine. A nil notifier falls back to log-only delivery.
func NewEngine(notifier notify.Publisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogPublisher(logger)
	}
	return &Engine{notifier: notifier, logger: logger}
}
