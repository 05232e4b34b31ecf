package fs

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/git"
)

var (
	journalHeader    = []string{"at", "record_id", "kind", "from", "to"}
	errJournalHeader = errors.New("unexpected journal header")
)

// RecordTransitions appends entries to the transition journal.
func (r *Repository) RecordTransitions(ctx context.Context, ts ...core.Transition) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if len(ts) == 0 {
		return nil
	}
	if err := os.MkdirAll(r.SystemPath(), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}

	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, []string{
			t.At.In(r.config.Location).Format(TimeLayout),
			t.RecordID,
			string(t.Kind),
			t.From,
			t.To,
		})
	}
	if err := appendRows(r.JournalPath(), journalHeader, rows...); err != nil {
		return fmt.Errorf("failed to append transitions: %w", err)
	}
	return r.commit(git.CommitTypeFeat, fmt.Sprintf("journal %d transitions", len(ts)))
}

// Transitions returns the journal in append order.
func (r *Repository) Transitions(ctx context.Context) ([]core.Transition, error) {
	data, err := os.ReadFile(r.JournalPath())
	if os.IsNotExist(err) {
		return []core.Transition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err == io.EOF {
		return []core.Transition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal header: %w", err)
	}
	if !slices.Equal(header, journalHeader) {
		return nil, fmt.Errorf("%w: %s", errJournalHeader, strings.Join(header, ","))
	}

	out := []core.Transition{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read journal row: %w", err)
		}
		at, err := time.ParseInLocation(TimeLayout, row[0], r.config.Location)
		if err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		out = append(out, core.Transition{
			At:       at,
			RecordID: row[1],
			Kind:     core.TransitionKind(row[2]),
			From:     row[3],
			To:       row[4],
		})
	}
	return out, nil
}
