package activitymap

import (
	"context"
	"strings"
	"time"

	invite "github.com/goliatone/go-auth-invite"
)

const (
	// MetadataKeyEmail stores the email the event concerns.
	MetadataKeyEmail = "email"
	// MetadataKeyState stores the registration state after the event.
	MetadataKeyState = "state"
)

const (
	defaultChannel    = "registration"
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorID          string
	objectIDResolver func(invite.ActivityEvent) string
}

// Normalize converts an invite.ActivityEvent into the generic normalized shape.
func Normalize(event invite.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    options.actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(invite.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActor sets the actor recorded on every normalized record.
func WithActor(actorID string) Option {
	return func(opts *normalizeOptions) {
		if id := strings.TrimSpace(actorID); id != "" {
			opts.actorID = id
		}
	}
}

// LogSink is an invite.ActivitySink writing normalized records to a logger
type LogSink struct {
	logger invite.Logger
	opts   []Option
}

var _ invite.ActivitySink = (*LogSink)(nil)

// NewLogSink returns a sink that logs every event at info level
func NewLogSink(logger invite.Logger, opts ...Option) *LogSink {
	if logger == nil {
		logger = invite.NoopLogger()
	}
	return &LogSink{logger: logger, opts: opts}
}

// Record implements invite.ActivitySink
func (s *LogSink) Record(_ context.Context, event invite.ActivityEvent) error {
	n := Normalize(event, s.opts...)
	s.logger.Info("activity",
		"verb", n.Verb,
		"actor_id", n.ActorID,
		"object_type", n.ObjectType,
		"object_id", n.ObjectID,
		"channel", n.Channel,
		"metadata", n.Metadata,
		"occurred_at", n.OccurredAt,
	)
	return nil
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:    defaultChannel,
		objectType: defaultObjectType,
		actorID:    defaultActorID,
	}
}

func resolveObjectID(event invite.ActivityEvent, resolver func(invite.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	if id := strings.TrimSpace(event.AccountID); id != "" {
		return id
	}
	if event.Account != nil {
		return event.Account.ID.String()
	}
	return ""
}

func normalizeMetadata(event invite.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	email := strings.TrimSpace(event.Email)
	if email == "" && event.Account != nil {
		email = event.Account.Email
	}
	if email != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyEmail]; !exists {
			metadata[MetadataKeyEmail] = email
		}
	}

	if event.Account != nil {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyState] = event.Account.State()
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
