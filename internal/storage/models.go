package storage

import "time"

// Domain models that mirror SQL tables in schema.go.
// These are lightweight data transfer structs, NOT ORM models.

// Run kinds.
const (
	KindClosure = "closure"
	KindCycles  = "cycles"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Note categories.
const (
	noteExternal = "external"
	noteMissing  = "missing"
	noteFallback = "fallback"
)

// Run is one persisted analysis. Maps to the runs table.
type Run struct {
	ID        string    // run_id: UUID
	Kind      string    // kind: closure or cycles
	Targets   []string  // targets: Type#method entries for closure runs
	Status    string    // status: ok or failed
	Error     string    // error: failure message when Status is failed
	StartedAt time.Time // started_at
}
