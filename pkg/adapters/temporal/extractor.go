// Package temporal adapts github.com/olebedev/when to the classify.Extractor
// contract.
package temporal

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/olebedev/when/rules/zh"

	"github.com/aretw0/capsule/pkg/classify"
)

// Config holds the extractor settings.
type Config struct {
	// Locale selects the rule set: "zh" (default) or "en".
	Locale string
	// PreferFuture moves bare weekday or time-of-day mentions that resolve
	// into the past forward to their next occurrence.
	PreferFuture bool
}

// Extractor finds date/time mentions in free text.
type Extractor struct {
	parser *when.Parser
	config Config
}

// zhRules is zh.All without zh.ExactMonthDate, which panics on any input
// in when v1.1.0.
var zhRules = []rules.Rule{
	zh.Weekday(rules.Override),
	zh.CasualDate(rules.Override),
	zh.CasualTime(rules.Override),
	zh.HourMinute(rules.Override),
	zh.TraditionHour(rules.Override),
	zh.AfterTime(rules.Override),
}

// New creates an Extractor for the configured locale.
func New(config Config) (*Extractor, error) {
	if config.Locale == "" {
		config.Locale = "zh"
	}

	w := when.New(nil)
	switch config.Locale {
	case "zh":
		w.Add(zhRules...)
	case "en":
		w.Add(en.All...)
	default:
		return nil, fmt.Errorf("unsupported locale: %s", config.Locale)
	}
	w.Add(common.All...)

	return &Extractor{parser: w, config: config}, nil
}

// Extract implements classify.Extractor. It reports at most one match.
// A panic inside the rule set is returned as an error.
func (e *Extractor) Extract(text string, now time.Time) (matches []classify.Match, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			matches, err = nil, fmt.Errorf("parse %q: %v", text, r)
		}
	}()

	res, err := e.parser.Parse(text, now)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	if res == nil {
		return nil, nil
	}

	t := res.Time
	if e.config.PreferFuture {
		t = preferFuture(res.Text, t, now)
	}
	return []classify.Match{{Text: res.Text, Time: t}}, nil
}

var (
	pastMarkers    = []string{"昨", "前天", "上", "去年", "已经", "刚才", "last", "ago", "yesterday"}
	anchorMarkers  = []string{"本", "这", "今", "this", "today"}
	weekdayMarkers = []string{"周", "星期", "礼拜", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	dayMarkers     = []string{"天", "日", "号", "月", "年", "周", "星期", "礼拜", "tomorrow", "today"}
)

// preferFuture reinterprets an ambiguous mention that resolved before now.
func preferFuture(span string, t, now time.Time) time.Time {
	if !t.Before(now) {
		return t
	}
	s := strings.ToLower(span)
	if hasAny(s, pastMarkers) || hasAny(s, anchorMarkers) {
		return t
	}
	switch {
	case hasAny(s, weekdayMarkers):
		for t.Before(now) {
			t = t.AddDate(0, 0, 7)
		}
	case !hasAny(s, dayMarkers) && now.Sub(t) < 24*time.Hour:
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func hasAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var _ classify.Extractor = (*Extractor)(nil)
