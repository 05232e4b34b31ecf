// Package agent keeps the knowledge base in step with the record store.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/report"
)

// MarkerFile is the default name of the last-sync marker.
const MarkerFile = "last_sync"

// Exporter writes the knowledge-base documents.
type Exporter interface {
	Export(ctx context.Context) (report.Exported, error)
}

// Option configures an Agent.
type Option func(*Agent)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		a.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// Agent exports the store when it holds records newer than the last sync.
type Agent struct {
	repo     core.Repository
	exporter Exporter
	marker   string
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	syncs    int
	failures int
	last     report.Exported
}

// New creates an agent. marker is the path of the last-sync file.
func New(repo core.Repository, exporter Exporter, marker string, opts ...Option) *Agent {
	a := &Agent{
		repo:     repo,
		exporter: exporter,
		marker:   marker,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LastSync returns the marker time, or nil when the agent never synced or
// the marker is unreadable.
func (a *Agent) LastSync() *time.Time {
	data, err := os.ReadFile(a.marker)
	if err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		a.logger.Warn("ignoring unreadable sync marker", "path", a.marker, "error", err)
		return nil
	}
	return &t
}

// HasNewRecords reports whether any record was captured after the last
// sync. An empty store has nothing new; a store never synced has.
func (a *Agent) HasNewRecords(ctx context.Context) (bool, error) {
	records, err := a.repo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load records: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}
	last := a.LastSync()
	if last == nil {
		return true, nil
	}
	for _, r := range records {
		if r.RecordedAt.After(*last) {
			return true, nil
		}
	}
	return false, nil
}

// Sync exports the knowledge base when there are new records, or always
// when force is set, and then moves the marker. It reports whether an
// export happened.
func (a *Agent) Sync(ctx context.Context, force bool) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !force {
		fresh, err := a.HasNewRecords(ctx)
		if err != nil {
			return false, err
		}
		if !fresh {
			a.logger.Debug("no new records, skipping sync")
			return false, nil
		}
	}

	out, err := a.exporter.Export(ctx)
	if errors.Is(err, report.ErrNoData) {
		a.logger.Info("nothing to export")
		return false, nil
	}
	if err != nil {
		a.failures++
		return false, fmt.Errorf("export: %w", err)
	}

	if err := a.writeMarker(); err != nil {
		a.failures++
		return false, err
	}
	a.syncs++
	a.last = out
	a.logger.Info("knowledge base synced", "weekly", out.Weekly, "monthly", out.Monthly)
	return true, nil
}

func (a *Agent) writeMarker() error {
	if err := os.MkdirAll(filepath.Dir(a.marker), 0755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	stamp := a.now().Format(time.RFC3339)
	if err := os.WriteFile(a.marker, []byte(stamp+"\n"), 0644); err != nil {
		return fmt.Errorf("write sync marker: %w", err)
	}
	return nil
}

// Follow syncs on every event of src until ctx ends or src closes. Sync
// failures are logged and do not stop the loop.
func (a *Agent) Follow(ctx context.Context, src lifecycle.Source) error {
	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-src.Events():
			if !ok {
				return nil
			}
			a.logger.Debug("store changed", "event", e.String())
			if _, err := a.Sync(ctx, false); err != nil {
				a.logger.Error("sync failed", "error", err)
			}
		}
	}
}

// State exposes internal state for observability.
type State struct {
	Marker   string     `json:"marker"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	Syncs    int        `json:"syncs"`
	Failures int        `json:"failures"`
	Weekly   string     `json:"weekly,omitempty"`
	Monthly  string     `json:"monthly,omitempty"`
}

// State implements introspection.Introspectable.
func (a *Agent) State() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		Marker:   a.marker,
		LastSync: a.LastSync(),
		Syncs:    a.syncs,
		Failures: a.failures,
		Weekly:   a.last.Weekly,
		Monthly:  a.last.Monthly,
	}
}

// ComponentType implements introspection.Component.
func (a *Agent) ComponentType() string {
	return "sync-agent"
}

var _ introspection.Introspectable = (*Agent)(nil)
var _ introspection.Component = (*Agent)(nil)
