package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrSchemaTooNew = errors.New("storage: schema version newer than code")
)

// KeyValue stores opaque string values under fixed keys. Set replaces the
// whole value atomically.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Stats describes the slot store. InitializedAt is nil until the first
// successful Set, which separates "never written" from "written but
// unreadable".
type Stats struct {
	Path            string
	SchemaVersion   int
	WriteGeneration uint64
	InitializedAt   *time.Time
}

type AuditEvent struct {
	ID          string
	Action      string
	TargetType  string
	TargetID    string
	Result      string
	DetailsJSON string
	PrevHash    string
	EventHash   string
	CreatedAt   time.Time
}

type AuditFilter struct {
	Action   string
	TargetID string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

type AuditRepository interface {
	AppendWithTip(ctx context.Context, event *AuditEvent, tip string) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
	ChainTip(ctx context.Context) (string, error)
}
