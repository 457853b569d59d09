// Package notify carries the notifications emitted while reconciling
// appointment state with the remote calendar store.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// CancellationReason says why an appointment was cancelled during decline
// resolution.
type CancellationReason string

const (
	// ReasonOwnerDeclined: the schedule owner declined their own
	// appointment, cancelling it for everyone.
	ReasonOwnerDeclined CancellationReason = "OWNER_DECLINED"
	// ReasonNoRemainingVisitors: the last (or only) visitor declined, so
	// the appointment no longer has anyone to meet.
	ReasonNoRemainingVisitors CancellationReason = "NO_REMAINING_VISITORS"
)

// AppointmentCancellation reports that a whole appointment was removed.
type AppointmentCancellation struct {
	Owner   string
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	Reason  CancellationReason
}

// AttendeeRemoval reports that one declined visitor was dropped from a
// multi-visitor appointment that otherwise survives.
type AttendeeRemoval struct {
	Owner         string
	UID           string
	Summary       string
	Start         time.Time
	End           time.Time
	AttendeeName  string
	AttendeeEmail string
}

// Publisher receives reconciliation notifications. Implementations must not
// block reconciliation; expensive delivery belongs behind a queue.
type Publisher interface {
	AppointmentCancelled(ctx context.Context, n AppointmentCancellation)
	AttendeeRemoved(ctx context.Context, n AttendeeRemoval)
}

// LogPublisher writes notifications to the structured log. It is the default
// publisher when no delivery channel is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher wires a log-backed publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) AppointmentCancelled(ctx context.Context, n AppointmentCancellation) {
	p.logger.InfoContext(ctx, "appointment cancelled",
		"owner", n.Owner,
		"uid", n.UID,
		"summary", n.Summary,
		"start", n.Start,
		"reason", string(n.Reason),
	)
}

func (p *LogPublisher) AttendeeRemoved(ctx context.Context, n AttendeeRemoval) {
	p.logger.InfoContext(ctx, "declined attendee removed from appointment",
		"owner", n.Owner,
		"uid", n.UID,
		"summary", n.Summary,
		"start", n.Start,
		"attendee", n.AttendeeEmail,
	)
}
