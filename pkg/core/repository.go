package core

import (
	"context"
	"time"
)

// Repository is the minimal tabular store the capsule depends on.
// Records are kept in insertion order; Load returns them in that order.
type Repository interface {
	// Initialize ensures the storage exists with the expected columns.
	// A store that cannot be recognized returns ErrMalformedStore.
	Initialize(ctx context.Context) error

	// Load returns every record. A missing store yields an empty slice.
	Load(ctx context.Context) ([]Record, error)

	// Append adds one record at the end of the store.
	Append(ctx context.Context, r Record) error

	// Overwrite replaces the whole store with records.
	Overwrite(ctx context.Context, records []Record) error

	// Reset discards every record. It is the explicit repair for a
	// malformed store and is never called implicitly.
	Reset(ctx context.Context) error
}

// TransitionKind tags an entry of the transition journal.
type TransitionKind string

const (
	TransitionCreated         TransitionKind = "Created"
	TransitionStatusChanged   TransitionKind = "StatusChanged"
	TransitionCategoryChanged TransitionKind = "CategoryChanged"
	TransitionCostChanged     TransitionKind = "CostChanged"
)

// Transition is one append-only state change of a record.
type Transition struct {
	RecordID string
	Kind     TransitionKind
	From     string
	To       string
	At       time.Time
}

// Journal is implemented by repositories that keep a transition log.
type Journal interface {
	RecordTransitions(ctx context.Context, ts ...Transition) error
	Transitions(ctx context.Context) ([]Transition, error)
}

// EventType represents the type of change observed on the store.
type EventType string

const (
	EventModify EventType = "MODIFY"
	EventReset  EventType = "RESET"
)

// Event represents a change in the store.
type Event struct {
	Type      EventType
	Path      string
	Timestamp int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return string(e.Type) + " " + e.Path
}

// Watchable is implemented by repositories that can report changes.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}
