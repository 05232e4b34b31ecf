// Package report derives windowed statistics from the record store and
// exports them as Markdown knowledge-base documents.
package report

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aretw0/capsule/pkg/core"
)

// ErrNoData is returned when a window holds no records. A missing store
// is not this error unless loading it succeeded.
var ErrNoData = errors.New("no records in window")

// Window is a trailing time range.
type Window string

const (
	Week  Window = "week"
	Month Window = "month"
	Year  Window = "year"
)

// Days returns the length of the window, or 0 for an unknown window.
func (w Window) Days() int {
	switch w {
	case Week:
		return 7
	case Month:
		return 30
	case Year:
		return 365
	}
	return 0
}

// Label is the Chinese name used in reports and prompts.
func (w Window) Label() string {
	switch w {
	case Week:
		return "周"
	case Month:
		return "月"
	case Year:
		return "年"
	}
	return string(w)
}

// ParseWindow accepts week, month or year.
func ParseWindow(s string) (Window, error) {
	w := Window(s)
	if w.Days() == 0 {
		return "", fmt.Errorf("unknown window %q (want week, month or year)", s)
	}
	return w, nil
}

const (
	maxSchedules = 10
	maxIdeas     = 5
	maxExpenses  = 5
	maxRecent    = 10
)

// Summary is the structured result of a window rollup.
type Summary struct {
	Label      string                `json:"label"`
	Start      time.Time             `json:"start"`
	End        time.Time             `json:"end"`
	Days       int                   `json:"days"`
	Records    int                   `json:"records"`
	ByCategory map[core.Category]int `json:"by_category"`
	Spending   Spending              `json:"spending"`
	Schedules  []string              `json:"schedules"`
	Ideas      []string              `json:"ideas"`
	Completion Completion            `json:"completion"`
	IdeaPeak   *Peak                 `json:"idea_peak,omitempty"`
	Recent     []core.Record         `json:"recent"`
}

// Count returns the number of window records in category c.
func (s Summary) Count(c core.Category) int {
	return s.ByCategory[c]
}

// Spending aggregates financial records: category Finance or a positive
// linked cost.
type Spending struct {
	Count        int              `json:"count"`
	Total        decimal.Decimal  `json:"total"`
	Weekend      decimal.Decimal  `json:"weekend"`
	Weekday      decimal.Decimal  `json:"weekday"`
	WeekendShare float64          `json:"weekend_share"` // percent of Total
	DailyAverage decimal.Decimal  `json:"daily_average"`
	ByCategory   []CategoryAmount `json:"by_category"`
	TopCategory  core.Category    `json:"top_category,omitempty"`
	Top          []core.Record    `json:"top"`
}

// CategoryAmount is one line of the spending breakdown.
type CategoryAmount struct {
	Category core.Category   `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Share returns the percentage of total this category represents.
func (c CategoryAmount) Share(total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return c.Amount.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Completion describes how many todos of the window were completed.
// Tracked is true when the figures come from the transition journal,
// false when they are the Schedule∧Done / Todo approximation.
type Completion struct {
	Todos     int     `json:"todos"`
	Completed int     `json:"completed"`
	Rate      float64 `json:"rate"` // percent
	Tracked   bool    `json:"tracked"`
}

// Peak is the most frequent hour and weekday of idea capture.
type Peak struct {
	Count   int          `json:"count"`
	Hour    int          `json:"hour"`
	Weekday time.Weekday `json:"weekday"`
}

// WeekdayLabel returns the Chinese weekday name.
func (p Peak) WeekdayLabel() string {
	return WeekdayLabel(p.Weekday)
}

var weekdayLabels = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// WeekdayLabel returns the Chinese name of d.
func WeekdayLabel(d time.Weekday) string {
	return weekdayLabels[d]
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// Aggregator computes summaries over a repository.
type Aggregator struct {
	repo   core.Repository
	now    func() time.Time
	logger *slog.Logger
}

// NewAggregator creates an aggregator reading from repo.
func NewAggregator(repo core.Repository, opts ...Option) *Aggregator {
	a := &Aggregator{
		repo:   repo,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Now returns the aggregator clock.
func (a *Aggregator) Now() time.Time {
	return a.now()
}

// Summarize rolls up records with RecordedAt strictly after now minus the
// window length.
func (a *Aggregator) Summarize(ctx context.Context, window Window) (Summary, error) {
	days := window.Days()
	if days == 0 {
		return Summary{}, fmt.Errorf("unknown window %q", window)
	}
	now := a.now()
	start := now.AddDate(0, 0, -days)
	return a.summarize(ctx, string(window), start, now, days, func(t time.Time) bool {
		return t.After(start)
	})
}

// SummarizeRange rolls up records with start <= RecordedAt < end. The
// daily average divides by the number of started days in the range.
func (a *Aggregator) SummarizeRange(ctx context.Context, start, end time.Time, label string) (Summary, error) {
	if !end.After(start) {
		return Summary{}, fmt.Errorf("empty range %s..%s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	days := int(end.Sub(start).Hours() / 24)
	if end.Sub(start) > time.Duration(days)*24*time.Hour {
		days++
	}
	return a.summarize(ctx, label, start, end, days, func(t time.Time) bool {
		return !t.Before(start) && t.Before(end)
	})
}

func (a *Aggregator) summarize(ctx context.Context, label string, start, end time.Time, days int, in func(time.Time) bool) (Summary, error) {
	all, err := a.repo.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load records: %w", err)
	}

	var window []core.Record
	for _, r := range all {
		if in(r.RecordedAt) {
			window = append(window, r)
		}
	}
	if len(window) == 0 {
		return Summary{}, ErrNoData
	}

	s := Summary{
		Label:      label,
		Start:      start,
		End:        end,
		Days:       days,
		Records:    len(window),
		ByCategory: make(map[core.Category]int),
		Schedules:  []string{},
		Ideas:      []string{},
	}
	var ideas []core.Record
	for _, r := range window {
		s.ByCategory[r.Category]++
		switch r.Category {
		case core.CategorySchedule:
			if len(s.Schedules) < maxSchedules {
				s.Schedules = append(s.Schedules, r.Content)
			}
		case core.CategoryIdea:
			if len(s.Ideas) < maxIdeas {
				s.Ideas = append(s.Ideas, r.Content)
			}
			ideas = append(ideas, r)
		}
	}

	s.Spending = spending(window, days)
	s.Completion = a.completion(ctx, window)
	s.IdeaPeak = peak(ideas)
	s.Recent = recent(window, maxRecent)

	a.logger.Debug("window summarized", "label", label, "records", s.Records, "tracked", s.Completion.Tracked)
	return s, nil
}

func spending(window []core.Record, days int) Spending {
	sp := Spending{
		Total:      decimal.Zero,
		Weekend:    decimal.Zero,
		Weekday:    decimal.Zero,
		ByCategory: []CategoryAmount{},
		Top:        []core.Record{},
	}
	byCat := map[core.Category]decimal.Decimal{}
	var financial []core.Record
	for _, r := range window {
		if !r.Financial() {
			continue
		}
		financial = append(financial, r)
		sp.Count++
		sp.Total = sp.Total.Add(r.LinkedCost)
		if wd := r.RecordedAt.Weekday(); wd == time.Saturday || wd == time.Sunday {
			sp.Weekend = sp.Weekend.Add(r.LinkedCost)
		} else {
			sp.Weekday = sp.Weekday.Add(r.LinkedCost)
		}
		byCat[r.Category] = byCat[r.Category].Add(r.LinkedCost)
	}
	if sp.Count == 0 {
		sp.DailyAverage = decimal.Zero
		return sp
	}

	if sp.Total.IsPositive() {
		sp.WeekendShare = sp.Weekend.Div(sp.Total).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	sp.DailyAverage = sp.Total.Div(decimal.NewFromInt(int64(max(days, 1))))

	for c, amount := range byCat {
		sp.ByCategory = append(sp.ByCategory, CategoryAmount{Category: c, Amount: amount})
	}
	slices.SortFunc(sp.ByCategory, func(x, y CategoryAmount) int {
		if c := y.Amount.Cmp(x.Amount); c != 0 {
			return c
		}
		return cmp.Compare(x.Category, y.Category)
	})
	sp.TopCategory = sp.ByCategory[0].Category

	slices.SortStableFunc(financial, func(x, y core.Record) int {
		return y.LinkedCost.Cmp(x.LinkedCost)
	})
	for _, r := range financial {
		if len(sp.Top) == maxExpenses || !r.LinkedCost.IsPositive() {
			break
		}
		sp.Top = append(sp.Top, r)
	}
	return sp
}

// completion uses the transition journal when the repository keeps one.
func (a *Aggregator) completion(ctx context.Context, window []core.Record) Completion {
	if j, ok := a.repo.(core.Journal); ok {
		ts, err := j.Transitions(ctx)
		if err == nil {
			return trackedCompletion(window, ts)
		}
		a.logger.Warn("journal unavailable, approximating completion rate", "error", err)
	}

	var c Completion
	for _, r := range window {
		switch {
		case r.Category == core.CategoryTodo:
			c.Todos++
		case r.Category == core.CategorySchedule && r.Status == core.StatusDone:
			c.Completed++
		}
	}
	c.Rate = rate(c.Completed, c.Todos)
	return c
}

func trackedCompletion(window []core.Record, ts []core.Transition) Completion {
	promoted := map[string]bool{}
	for _, t := range ts {
		if t.Kind == core.TransitionCategoryChanged &&
			t.From == string(core.CategoryTodo) && t.To == string(core.CategorySchedule) {
			promoted[t.RecordID] = true
		}
	}

	c := Completion{Tracked: true}
	for _, r := range window {
		switch {
		case promoted[r.ID]:
			c.Todos++
			c.Completed++
		case r.Category == core.CategoryTodo:
			c.Todos++
		}
	}
	c.Rate = rate(c.Completed, c.Todos)
	return c
}

func rate(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// peak returns the modal hour and weekday; ties resolve to the earliest
// hour and the earliest day of a Monday-first week.
func peak(ideas []core.Record) *Peak {
	if len(ideas) == 0 {
		return nil
	}
	var hours [24]int
	var days [7]int
	for _, r := range ideas {
		hours[r.RecordedAt.Hour()]++
		days[(r.RecordedAt.Weekday()+6)%7]++
	}
	p := &Peak{Count: len(ideas)}
	for h := range hours {
		if hours[h] > hours[p.Hour] {
			p.Hour = h
		}
	}
	best := 0
	for d := range days {
		if days[d] > days[best] {
			best = d
		}
	}
	p.Weekday = time.Weekday((best + 1) % 7)
	return p
}

func recent(window []core.Record, n int) []core.Record {
	out := slices.Clone(window)
	slices.SortStableFunc(out, func(x, y core.Record) int {
		return y.RecordedAt.Compare(x.RecordedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
