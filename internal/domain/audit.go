package domain

import (
	"context"
	"time"
)

// SystemActorID is the actor recorded for transitions made by the lifecycle ticker.
const SystemActorID = "system"

// Audit entity kinds.
const (
	AuditEntityEvent   = "event"
	AuditEntitySession = "session"
)

// Audit actions written by the lifecycle.
const (
	ActionEventAutoStart   = "event.auto_start"
	ActionEventAutoClose   = "event.auto_close"
	ActionEventForceStart  = "event.force_start"
	ActionEventForceClose  = "event.force_close"
	ActionSessionCreate    = "session.create"
	ActionSessionStart     = "session.start"
	ActionSessionEnd       = "session.end"
	ActionSessionAutoStart = "session.auto_start"
	ActionSessionAutoEnd   = "session.auto_end"
)

// AuditLogEntry records one lifecycle action. Entries are append-only.
type AuditLogEntry struct {
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// AuditSink receives audit entries. Implementations may fail independently of
// the transition that produced the entry.
type AuditSink interface {
	Append(ctx context.Context, entry AuditLogEntry) error
}
