// Package classify turns free text into a categorized, stateful record
// using date extraction and keyword heuristics.
package classify

import (
	"fmt"
	"time"

	"github.com/aretw0/capsule/pkg/core"
)

// Match is one date/time mention found in a text.
type Match struct {
	Text string
	Time time.Time
}

// Extractor resolves natural-language date/time mentions to absolute
// timestamps. Implementations should prefer future readings of ambiguous
// mentions.
type Extractor interface {
	Extract(text string, now time.Time) ([]Match, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(text string, now time.Time) ([]Match, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(text string, now time.Time) ([]Match, error) {
	return f(text, now)
}

// Classifier is a pure text → classification function.
type Classifier struct {
	extractor Extractor
	keywords  Keywords
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithKeywords replaces the default keyword sets.
func WithKeywords(k Keywords) Option {
	return func(c *Classifier) {
		c.keywords = k
	}
}

// New creates a Classifier. A nil extractor means no date is ever found.
func New(extractor Extractor, opts ...Option) *Classifier {
	c := &Classifier{
		extractor: extractor,
		keywords:  DefaultKeywords(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implements core.Classifier.
//
// Decision order, first match wins:
//
//	future date       -> Todo
//	finance keyword   -> Finance
//	date or schedule  -> Schedule
//	idea keyword      -> Idea
//	todo keyword      -> Todo
//	otherwise         -> Idea
func (c *Classifier) Classify(text string, now time.Time) (core.Classification, error) {
	var out core.Classification

	if c.extractor != nil && text != "" {
		matches, err := c.extractor.Extract(text, now)
		if err != nil {
			return core.Classification{}, fmt.Errorf("extract dates: %w", err)
		}
		if len(matches) > 0 {
			t := matches[0].Time
			out.TargetTime = &t
			out.Span = matches[0].Text
		}
	}

	k := c.keywords
	switch {
	case out.TargetTime != nil && out.TargetTime.After(now):
		out.Category = core.CategoryTodo
	case containsAny(text, k.Finance):
		out.Category = core.CategoryFinance
	case out.TargetTime != nil || containsAny(text, k.Schedule):
		out.Category = core.CategorySchedule
	case containsAny(text, k.Idea):
		out.Category = core.CategoryIdea
	case containsAny(text, k.Todo):
		out.Category = core.CategoryTodo
	default:
		out.Category = core.CategoryIdea
	}

	out.Status = InitialStatus(out.Category)
	return out, nil
}

// InitialStatus is Done for Finance and Schedule, Pending otherwise.
func InitialStatus(c core.Category) core.Status {
	if c == core.CategoryFinance || c == core.CategorySchedule {
		return core.StatusDone
	}
	return core.StatusPending
}

var _ core.Classifier = (*Classifier)(nil)
