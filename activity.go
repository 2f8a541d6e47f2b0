package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess        ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure        ActivityEventType = "auth.login.failure"
	ActivityEventAdminLogin          ActivityEventType = "auth.admin.login"
	ActivityEventAccountRegistered   ActivityEventType = "auth.account.registered"
	ActivityEventAccountProvisioned  ActivityEventType = "auth.account.provisioned"
	ActivityEventAccountUpdated      ActivityEventType = "admin.account.updated"
	ActivityEventAccountAdminToggled ActivityEventType = "admin.account.admin_toggled"
	ActivityEventAccountActiveToggle ActivityEventType = "admin.account.active_toggled"
)

// ActorRef identifies who performed an action
type ActorRef struct {
	ID    string
	Email string
	Type  string
}

const (
	ActorTypeUser   = "user"
	ActorTypeAdmin  = "admin"
	ActorTypeSystem = "system"
)

// ActorFromAccount builds an ActorRef for account
func ActorFromAccount(account *Account) ActorRef {
	if account == nil {
		return ActorRef{Type: ActorTypeSystem}
	}
	actorType := ActorTypeUser
	if account.IsAdmin {
		actorType = ActorTypeAdmin
	}
	return ActorRef{ID: account.ID, Email: account.Email, Type: actorType}
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	IPAddress  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
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

// MultiActivitySink fans an event out to every sink. It returns the first
// error but always records to all sinks.
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// recordActivity sends event to sink and logs failures. Sinks never fail
// the operation that produced the event.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Warn("failed to record activity", "event", string(event.EventType), "error", err)
	}
}
