// Package store keeps finished runs so their exports can be downloaded
// after the request that produced them.
//
// Two implementations exist: an in-memory store for single-user desktop
// use and a PostgreSQL store for shared deployments. Both are safe for
// concurrent use.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/icumatch/internal/core"
)

// ErrNotFound is returned when a run does not exist or has expired.
var ErrNotFound = errors.New("run not found")

// Kind names what produced a run.
type Kind string

const (
	KindMatch  Kind = "match"
	KindCensus Kind = "census"
	KindLookup Kind = "lookup"
)

// Run is one stored result.
type Run struct {
	ID        uuid.UUID         `json:"id"`
	Kind      Kind              `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Counts    map[string]int    `json:"counts,omitempty"`
	Warnings  []core.Warning    `json:"warnings,omitempty"`
	Exports   []core.Export     `json:"exports"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// NewRun creates a run with a fresh ID and the current time.
func NewRun(kind Kind, exports ...core.Export) *Run {
	return &Run{
		ID:        uuid.New(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Exports:   exports,
	}
}

// MatchRun stores a match result and its export in the given layout.
func MatchRun(res *core.Result, v core.Variant) *Run {
	run := NewRun(KindMatch, res.Export(v))
	run.Counts = make(map[string]int)
	for outcome, n := range res.Counts() {
		run.Counts[outcome.String()] = n
	}
	run.Warnings = res.Warnings
	run.Meta = map[string]string{"variant": v.String()}
	return run
}

// Store persists runs.
type Store interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	// Latest returns the most recent run, or ErrNotFound.
	Latest(ctx context.Context) (*Run, error)
	// Purge deletes runs created before cutoff and reports how many.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
	Close()
}
