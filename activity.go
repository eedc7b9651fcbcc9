package invite

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountCreated        ActivityEventType = "account.created"
	ActivityEventInvitationCreated     ActivityEventType = "invitation.created"
	ActivityEventRegistrationConfirmed ActivityEventType = "registration.confirmed"
	ActivityEventAdminMirrored         ActivityEventType = "admin.mirrored"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
	Email      string
	Account    *Account
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing and side effects.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// ActivitySinks fans an event out to every sink in order. All sinks see
// the event; the first error is returned.
type ActivitySinks []ActivitySink

// Record implements ActivitySink.
func (s ActivitySinks) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink error", "event", event.EventType, "error", err)
	}
}
