// Package audit records administrative and lifecycle actions (key
// rotations, revocations, renewals) as an append-only activity trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Entry is a single activity record.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	MerchantID uuid.UUID      `json:"merchant_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Result     Result         `json:"result"`
	Reason     string         `json:"reason,omitempty"`
	Error      string         `json:"error,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Storage persists audit entries. Implementations must treat entries as
// append-only.
type Storage interface {
	Store(ctx context.Context, entry Entry) error
}

// Option decorates an entry before it is stored.
type Option func(*Entry)

// WithResource names the object the action touched.
func WithResource(resource, resourceID string) Option {
	return func(e *Entry) {
		e.Resource = resource
		e.ResourceID = resourceID
	}
}

// WithReason records the operator-supplied reason for the action.
func WithReason(reason string) Option {
	return func(e *Entry) { e.Reason = reason }
}

// WithCaller records the caller's network identity.
func WithCaller(ip, userAgent string) Option {
	return func(e *Entry) {
		e.IP = ip
		e.UserAgent = userAgent
	}
}

// WithMeta attaches one metadata key/value pair.
func WithMeta(key string, value any) Option {
	return func(e *Entry) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// Logger writes activity entries to a Storage backend.
type Logger struct {
	storage Storage
}

// NewLogger creates an audit logger. Panics on nil storage to fail fast
// during wiring.
func NewLogger(storage Storage) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Logger{storage: storage}
}

// Record stores a successful action.
func (l *Logger) Record(ctx context.Context, merchantID uuid.UUID, action string, opts ...Option) error {
	return l.store(ctx, merchantID, action, ResultSuccess, nil, opts)
}

// RecordError stores a failed action together with its error.
func (l *Logger) RecordError(ctx context.Context, merchantID uuid.UUID, action string, err error, opts ...Option) error {
	return l.store(ctx, merchantID, action, ResultFailure, err, opts)
}

func (l *Logger) store(ctx context.Context, merchantID uuid.UUID, action string, result Result, cause error, opts []Option) error {
	entry := Entry{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Action:     action,
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	for _, opt := range opts {
		opt(&entry)
	}
	return l.storage.Store(ctx, entry)
}
