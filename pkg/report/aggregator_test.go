package report_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/report"
)

// Saturday, ISO week 42.
var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type memRepo struct {
	records []core.Record
	loadErr error
}

func (m *memRepo) Initialize(context.Context) error { return nil }
func (m *memRepo) Load(context.Context) ([]core.Record, error) {
	return append([]core.Record(nil), m.records...), m.loadErr
}
func (m *memRepo) Append(_ context.Context, r core.Record) error {
	m.records = append(m.records, r)
	return nil
}
func (m *memRepo) Overwrite(_ context.Context, rs []core.Record) error {
	m.records = rs
	return nil
}
func (m *memRepo) Reset(context.Context) error {
	m.records = nil
	return nil
}

type journaledRepo struct {
	memRepo
	transitions []core.Transition
	err         error
}

func (j *journaledRepo) RecordTransitions(_ context.Context, ts ...core.Transition) error {
	j.transitions = append(j.transitions, ts...)
	return nil
}
func (j *journaledRepo) Transitions(context.Context) ([]core.Transition, error) {
	return j.transitions, j.err
}

func rec(id string, at time.Time, cat core.Category, status core.Status, cost string) core.Record {
	return core.Record{
		ID:         id,
		RecordedAt: at,
		Category:   cat,
		Content:    "content " + id,
		Status:     status,
		LinkedCost: decimal.RequireFromString(cost),
	}
}

func newAggregator(repo core.Repository) *report.Aggregator {
	return report.NewAggregator(repo, report.WithClock(func() time.Time { return now }))
}

func TestSummarizeNoData(t *testing.T) {
	ctx := context.Background()

	_, err := newAggregator(&memRepo{}).Summarize(ctx, report.Week)
	assert.ErrorIs(t, err, report.ErrNoData)

	old := &memRepo{records: []core.Record{
		rec("old", now.AddDate(0, 0, -7), core.CategoryIdea, core.StatusPending, "0"),
	}}
	_, err = newAggregator(old).Summarize(ctx, report.Week)
	assert.ErrorIs(t, err, report.ErrNoData, "window start is exclusive")

	broken := &memRepo{loadErr: core.ErrMalformedStore}
	_, err = newAggregator(broken).Summarize(ctx, report.Week)
	assert.ErrorIs(t, err, core.ErrMalformedStore)
	assert.False(t, errors.Is(err, report.ErrNoData))
}

func TestSummarizeWindows(t *testing.T) {
	repo := &memRepo{records: []core.Record{
		rec("a", now.Add(-time.Hour), core.CategoryIdea, core.StatusPending, "0"),
		rec("b", now.AddDate(0, 0, -10), core.CategoryIdea, core.StatusPending, "0"),
		rec("c", now.AddDate(0, 0, -100), core.CategoryIdea, core.StatusPending, "0"),
	}}
	agg := newAggregator(repo)

	for window, want := range map[report.Window]int{report.Week: 1, report.Month: 2, report.Year: 3} {
		s, err := agg.Summarize(context.Background(), window)
		require.NoError(t, err)
		assert.Equal(t, want, s.Records, window)
		assert.Equal(t, window.Days(), s.Days)
	}

	_, err := agg.Summarize(context.Background(), report.Window("decade"))
	assert.Error(t, err)
}

func TestSpending(t *testing.T) {
	saturday := now.Add(-2 * time.Hour)
	wednesday := now.AddDate(0, 0, -3)
	repo := &memRepo{records: []core.Record{
		rec("lunch", saturday, core.CategoryFinance, core.StatusDone, "100"),
		rec("derived", wednesday, "dining", core.StatusDone, "50"),
		rec("meeting", wednesday, core.CategorySchedule, core.StatusDone, "50"),
		rec("budget", wednesday, core.CategoryFinance, core.StatusDone, "0"),
		rec("todo", wednesday, core.CategoryTodo, core.StatusPending, "0"),
	}}

	s, err := newAggregator(repo).Summarize(context.Background(), report.Week)
	require.NoError(t, err)

	sp := s.Spending
	assert.Equal(t, 4, sp.Count)
	assert.True(t, sp.Total.Equal(decimal.NewFromInt(200)))
	assert.True(t, sp.Weekend.Equal(decimal.NewFromInt(100)))
	assert.True(t, sp.Weekday.Equal(decimal.NewFromInt(100)))
	assert.InDelta(t, 50.0, sp.WeekendShare, 0.001)
	assert.InDelta(t, 200.0/7, sp.DailyAverage.InexactFloat64(), 0.001)

	require.Len(t, sp.ByCategory, 3)
	assert.Equal(t, core.CategoryFinance, sp.ByCategory[0].Category)
	assert.Equal(t, core.CategorySchedule, sp.ByCategory[1].Category, "ties sort by name")
	assert.Equal(t, core.Category("dining"), sp.ByCategory[2].Category)
	assert.Equal(t, core.CategoryFinance, sp.TopCategory)

	require.Len(t, sp.Top, 3, "zero-cost records are not expenses")
	assert.Equal(t, "lunch", sp.Top[0].ID)
}

func TestCompletionHeuristic(t *testing.T) {
	at := now.Add(-time.Hour)
	repo := &memRepo{records: []core.Record{
		rec("t1", at, core.CategoryTodo, core.StatusPending, "0"),
		rec("t2", at, core.CategoryTodo, core.StatusPending, "0"),
		rec("s1", at, core.CategorySchedule, core.StatusDone, "0"),
		rec("s2", at, core.CategorySchedule, core.StatusPending, "0"),
	}}

	s, err := newAggregator(repo).Summarize(context.Background(), report.Week)
	require.NoError(t, err)
	assert.False(t, s.Completion.Tracked)
	assert.Equal(t, 2, s.Completion.Todos)
	assert.Equal(t, 1, s.Completion.Completed)
	assert.InDelta(t, 50.0, s.Completion.Rate, 0.001)
}

func TestCompletionTracked(t *testing.T) {
	at := now.Add(-time.Hour)
	repo := &journaledRepo{
		memRepo: memRepo{records: []core.Record{
			rec("t1", at, core.CategoryTodo, core.StatusPending, "0"),
			rec("p1", at, core.CategorySchedule, core.StatusDone, "0"),
			// Captured as a past Schedule, never a todo.
			rec("s1", at, core.CategorySchedule, core.StatusDone, "0"),
		}},
		transitions: []core.Transition{
			{RecordID: "p1", Kind: core.TransitionStatusChanged, From: "Pending", To: "Done"},
			{RecordID: "p1", Kind: core.TransitionCategoryChanged, From: "Todo", To: "Schedule"},
		},
	}

	s, err := newAggregator(repo).Summarize(context.Background(), report.Week)
	require.NoError(t, err)
	assert.True(t, s.Completion.Tracked)
	assert.Equal(t, 2, s.Completion.Todos)
	assert.Equal(t, 1, s.Completion.Completed)
	assert.InDelta(t, 50.0, s.Completion.Rate, 0.001)

	repo.err = errors.New("journal unreadable")
	s, err = newAggregator(repo).Summarize(context.Background(), report.Week)
	require.NoError(t, err)
	assert.False(t, s.Completion.Tracked)
	assert.Equal(t, 1, s.Completion.Todos)
	assert.Equal(t, 2, s.Completion.Completed)
}

func TestIdeaPeakTiesResolveEarliest(t *testing.T) {
	monday9 := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	friday21 := time.Date(2026, 10, 16, 21, 0, 0, 0, time.UTC)
	repo := &memRepo{records: []core.Record{
		rec("late", friday21, core.CategoryIdea, core.StatusPending, "0"),
		rec("early", monday9, core.CategoryIdea, core.StatusPending, "0"),
	}}

	s, err := newAggregator(repo).Summarize(context.Background(), report.Week)
	require.NoError(t, err)
	require.NotNil(t, s.IdeaPeak)
	assert.Equal(t, 2, s.IdeaPeak.Count)
	assert.Equal(t, 9, s.IdeaPeak.Hour)
	assert.Equal(t, time.Monday, s.IdeaPeak.Weekday)
	assert.Equal(t, "周一", s.IdeaPeak.WeekdayLabel())
}

func TestListsAreBounded(t *testing.T) {
	repo := &memRepo{}
	for i := range 12 {
		at := now.Add(-time.Duration(i+1) * time.Minute)
		repo.records = append(repo.records,
			rec(fmt.Sprintf("s%d", i), at, core.CategorySchedule, core.StatusDone, "0"),
			rec(fmt.Sprintf("i%d", i), at, core.CategoryIdea, core.StatusPending, "0"),
		)
	}

	s, err := newAggregator(repo).Summarize(context.Background(), report.Week)
	require.NoError(t, err)
	assert.Len(t, s.Schedules, 10)
	assert.Equal(t, "content s0", s.Schedules[0])
	assert.Len(t, s.Ideas, 5)
	require.Len(t, s.Recent, 10)
	assert.Equal(t, "s0", s.Recent[0].ID)
	assert.True(t, s.Recent[0].RecordedAt.After(s.Recent[9].RecordedAt))
	assert.Empty(t, s.Spending.Top)
}

func TestSummarizeRange(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	repo := &memRepo{records: []core.Record{
		rec("sep", start.Add(-time.Second), core.CategoryFinance, core.StatusDone, "10"),
		rec("first", start, core.CategoryFinance, core.StatusDone, "30"),
	}}

	s, err := newAggregator(repo).SummarizeRange(context.Background(), start, now, "月")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Records)
	assert.Equal(t, 17, s.Days)
	assert.True(t, s.Spending.Total.Equal(decimal.NewFromInt(30)))

	_, err = newAggregator(repo).SummarizeRange(context.Background(), now, start, "x")
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	w, err := report.ParseWindow("month")
	require.NoError(t, err)
	assert.Equal(t, report.Month, w)
	assert.Equal(t, "月", w.Label())

	_, err = report.ParseWindow("fortnight")
	assert.Error(t, err)
}
