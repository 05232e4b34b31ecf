// Package lifecycle exposes record store change events as a lifecycle.Source.
package lifecycle

import (
	"context"
	"log/slog"
	"slices"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/capsule/pkg/core"
)

type storeSource struct {
	events <-chan core.Event
	out    chan lifecycle.Event
	types  []core.EventType
	logger *slog.Logger
}

// SourceOption configures a store source.
type SourceOption func(*storeSource)

// WithTypes forwards only events of the given types.
func WithTypes(types ...core.EventType) SourceOption {
	return func(s *storeSource) {
		s.types = types
	}
}

// WithLogger reports bridge failures to logger.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *storeSource) {
		s.logger = logger
	}
}

// NewSource bridges a store event channel to the generic lifecycle Event
// interface. The output channel closes when events closes or the context
// passed to Start ends.
func NewSource(events <-chan core.Event, opts ...SourceOption) lifecycle.Source {
	s := &storeSource{
		events: events,
		out:    make(chan lifecycle.Event),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *storeSource) accepts(e core.Event) bool {
	return len(s.types) == 0 || slices.Contains(s.types, e.Type)
}

func (s *storeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if !s.accepts(e) {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("store source panic", "error", err)
	}))
	return nil
}
