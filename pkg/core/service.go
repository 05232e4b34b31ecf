package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DerivedContentPrefix annotates the content of records fanned out from a
// completed task.
const DerivedContentPrefix = "完成任务: "

// Classification is the outcome of classifying a piece of text.
type Classification struct {
	Category   Category
	TargetTime *time.Time
	Status     Status
	Span       string
}

// Classifier turns raw text into a classification.
type Classifier interface {
	Classify(text string, now time.Time) (Classification, error)
}

// Service handles the record lifecycle.
type Service struct {
	repo       Repository
	classifier Classifier
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu        sync.RWMutex
	captured  int
	completed int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for RecordedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides how record IDs are assigned.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithServiceLogger sets the logger for the service.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new Service.
func NewService(repo Repository, classifier Classifier, opts ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		classifier: classifier,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Repository returns the underlying store.
func (s *Service) Repository() Repository {
	return s.repo
}

func (s *Service) timestamp() time.Time {
	return s.now().Truncate(time.Second)
}

// Capture classifies text and appends it as a new record.
func (s *Service) Capture(ctx context.Context, text string) (Record, error) {
	if s.classifier == nil {
		return Record{}, errors.New("capture: no classifier configured")
	}
	now := s.timestamp()
	c, err := s.classifier.Classify(text, now)
	if err != nil {
		return Record{}, fmt.Errorf("capture: classify: %w", err)
	}

	rec := Record{
		ID:         s.newID(),
		RecordedAt: now,
		Category:   c.Category,
		Content:    text,
		TargetTime: c.TargetTime,
		Status:     c.Status,
		LinkedCost: decimal.Zero,
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("capture: append: %w", err)
	}
	s.journal(ctx, Transition{RecordID: rec.ID, Kind: TransitionCreated, To: string(rec.Category), At: now})

	s.mu.Lock()
	s.captured++
	s.mu.Unlock()

	s.logger.Debug("record captured", "id", rec.ID, "category", rec.Category, "span", c.Span)
	return rec, nil
}

// Records returns every record in store order.
func (s *Service) Records(ctx context.Context) ([]Record, error) {
	return s.repo.Load(ctx)
}

// Get retrieves a record by ID.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	records, err := s.repo.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNoSuchRecord, id)
	}
	return records[i], nil
}

// Filter returns the records for which keep reports true.
func (s *Service) Filter(ctx context.Context, keep func(Record) bool) ([]Record, error) {
	records, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Pending returns the open tasks: pending Todo and Schedule records.
func (s *Service) Pending(ctx context.Context) ([]Record, error) {
	return s.Filter(ctx, func(r Record) bool {
		return r.Status == StatusPending && (r.Category == CategoryTodo || r.Category == CategorySchedule)
	})
}

// CompleteAt completes the record at a zero-based position of Load.
func (s *Service) CompleteAt(ctx context.Context, position int, items []ExpenseItem) (Completion, error) {
	records, err := s.repo.Load(ctx)
	if err != nil {
		return Completion{}, fmt.Errorf("complete: load: %w", err)
	}
	if position < 0 || position >= len(records) {
		return Completion{}, fmt.Errorf("%w at position %d (store holds %d)", ErrNoSuchRecord, position, len(records))
	}
	return s.Complete(ctx, records[position].ID, items)
}

// Complete marks a record as done, attaches the expense split and fans out
// one derived record per non-zero item.
//
// Workflow:
//  1. Reload the store; never trust a previous snapshot.
//  2. Set Status=Done and LinkedCost=sum(items); promote Todo to Schedule.
//  3. Overwrite the store.
//  4. Append the derived records, only once the overwrite succeeded.
//  5. Journal the transitions.
func (s *Service) Complete(ctx context.Context, id string, items []ExpenseItem) (Completion, error) {
	total := decimal.Zero
	for _, it := range items {
		if it.Amount.IsNegative() {
			return Completion{}, fmt.Errorf("complete: %w: %s", ErrInvalidExpense, it.Amount)
		}
		total = total.Add(it.Amount)
	}

	records, err := s.repo.Load(ctx)
	if err != nil {
		return Completion{}, fmt.Errorf("complete: load: %w", err)
	}
	i := indexOf(records, id)
	if i < 0 {
		return Completion{}, fmt.Errorf("complete: %w: %s", ErrNoSuchRecord, id)
	}
	// A record that is already Done only accepts a first expense split,
	// e.g. a Finance or Schedule record that was Done at creation.
	if records[i].Status == StatusDone && (!records[i].LinkedCost.IsZero() || !total.IsPositive()) {
		return Completion{}, fmt.Errorf("complete: %w: %s", ErrAlreadyDone, id)
	}

	now := s.timestamp()
	before := records[i]
	rec := &records[i]
	rec.Status = StatusDone
	rec.LinkedCost = total

	promoted := false
	if rec.Category == CategoryTodo {
		rec.Category = CategorySchedule
		promoted = true
	}

	if err := s.repo.Overwrite(ctx, records); err != nil {
		return Completion{}, fmt.Errorf("complete: overwrite: %w", err)
	}

	var transitions []Transition
	if before.Status != StatusDone {
		transitions = append(transitions, Transition{RecordID: id, Kind: TransitionStatusChanged, From: string(before.Status), To: string(StatusDone), At: now})
	}
	if promoted {
		transitions = append(transitions, Transition{RecordID: id, Kind: TransitionCategoryChanged, From: string(CategoryTodo), To: string(CategorySchedule), At: now})
	}
	if !before.LinkedCost.Equal(total) {
		transitions = append(transitions, Transition{RecordID: id, Kind: TransitionCostChanged, From: before.LinkedCost.String(), To: total.String(), At: now})
	}

	out := Completion{Record: *rec, Promoted: promoted}
	for _, it := range items {
		if !it.Amount.IsPositive() {
			continue
		}
		derived := Record{
			ID:         s.newID(),
			RecordedAt: now,
			Category:   it.Category,
			Content:    DerivedContentPrefix + rec.Content,
			Status:     StatusDone,
			LinkedCost: it.Amount,
		}
		if err := s.repo.Append(ctx, derived); err != nil {
			return out, fmt.Errorf("complete: append derived record: %w", err)
		}
		out.Derived = append(out.Derived, derived)
		transitions = append(transitions, Transition{RecordID: derived.ID, Kind: TransitionCreated, To: string(derived.Category), At: now})
	}

	s.journal(ctx, transitions...)

	s.mu.Lock()
	s.completed++
	s.mu.Unlock()

	s.logger.Info("record completed", "id", id, "promoted", promoted, "cost", total.String(), "derived", len(out.Derived))
	return out, nil
}

// Deduplicate rewrites the store without records that repeat an earlier
// record on every persisted column except the ID. Derived expense records
// are only removed when their IDs collide. It returns the number of records
// removed.
func (s *Service) Deduplicate(ctx context.Context) (int, error) {
	records, err := s.repo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("deduplicate: load: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		k := dedupKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}

	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.repo.Overwrite(ctx, kept); err != nil {
		return 0, fmt.Errorf("deduplicate: overwrite: %w", err)
	}
	s.logger.Info("store deduplicated", "removed", removed)
	return removed, nil
}

func (s *Service) journal(ctx context.Context, ts ...Transition) {
	j, ok := s.repo.(Journal)
	if !ok || len(ts) == 0 {
		return
	}
	// The record store is already committed at this point; a journal
	// failure only degrades completion tracking.
	if err := j.RecordTransitions(ctx, ts...); err != nil {
		s.logger.Warn("failed to journal transitions", "error", err)
	}
}

func indexOf(records []Record, id string) int {
	if id == "" {
		return -1
	}
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupKey identifies a record by its persisted columns except the ID.
// Derived expense records keep their ID in the key: one split may hold
// identical items stamped with the same time and content.
func dedupKey(r Record) string {
	if strings.HasPrefix(r.Content, DerivedContentPrefix) {
		return "derived\x00" + r.ID
	}
	target := ""
	if r.TargetTime != nil {
		target = r.TargetTime.Format(time.DateTime)
	}
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		r.RecordedAt.Format(time.DateTime), r.Category, r.Content, target, r.Status, r.LinkedCost.String())
}
