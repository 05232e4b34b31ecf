package sqlite

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path     string `json:"path"`
	Schema   int    `json:"schema"`
	Open     bool   `json:"open"`
	ReadOnly bool   `json:"read_only"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()

	state := StoreState{Path: s.config.Path, ReadOnly: s.config.ReadOnly, Open: db != nil}
	if db != nil {
		if v, err := schemaVersion(db); err == nil {
			state.Schema = v
		}
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sqlite-repository"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
