package classify_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/capsule/pkg/classify"
	"github.com/aretw0/capsule/pkg/core"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.Local)

// fixedDates returns an extractor that always reports the given times.
func fixedDates(times ...time.Time) classify.Extractor {
	return classify.ExtractorFunc(func(text string, _ time.Time) ([]classify.Match, error) {
		out := make([]classify.Match, 0, len(times))
		for _, t := range times {
			out = append(out, classify.Match{Text: "date", Time: t})
		}
		return out, nil
	})
}

func TestClassify(t *testing.T) {
	future := now.Add(5 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		text     string
		dates    []time.Time
		category core.Category
		status   core.Status
	}{
		{"future date beats schedule and finance", "下周三去北京开会花了500元", []time.Time{future}, core.CategoryTodo, core.StatusPending},
		{"future date beats finance", "买机票", []time.Time{future}, core.CategoryTodo, core.StatusPending},
		{"finance without date", "买机票", nil, core.CategoryFinance, core.StatusDone},
		{"finance beats past date", "昨天花了30块", []time.Time{past}, core.CategoryFinance, core.StatusDone},
		{"schedule keyword without date", "周一开会", nil, core.CategorySchedule, core.StatusDone},
		{"past date alone is schedule", "昨天见了老王", []time.Time{past}, core.CategorySchedule, core.StatusDone},
		{"date equal to now is not future", "现在", []time.Time{now}, core.CategorySchedule, core.StatusDone},
		{"idea keyword", "我想学吉他", nil, core.CategoryIdea, core.StatusPending},
		{"idea beats todo", "我觉得需要办签证", nil, core.CategoryIdea, core.StatusPending},
		{"todo keyword", "记得交作业", nil, core.CategoryTodo, core.StatusPending},
		{"no keyword falls back to idea", "hello world", nil, core.CategoryIdea, core.StatusPending},
		{"empty text falls back to idea", "", nil, core.CategoryIdea, core.StatusPending},
		{"first match wins", "开会", []time.Time{past, future}, core.CategorySchedule, core.StatusDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classify.New(fixedDates(tt.dates...))
			got, err := c.Classify(tt.text, now)
			require.NoError(t, err)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.status, got.Status)
			if len(tt.dates) > 0 && tt.text != "" {
				require.NotNil(t, got.TargetTime)
				assert.True(t, got.TargetTime.Equal(tt.dates[0]))
			} else {
				assert.Nil(t, got.TargetTime)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := classify.New(fixedDates(now.Add(time.Hour)))
	first, err := c.Classify("明天去开会", now)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := c.Classify("明天去开会", now)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassify_CaseSensitiveKeywords(t *testing.T) {
	c := classify.New(nil, classify.WithKeywords(classify.Keywords{Finance: []string{"Pay"}}))

	got, err := c.Classify("pay rent", now)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryIdea, got.Category)

	got, err = c.Classify("Pay rent", now)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryFinance, got.Category)
}

func TestClassify_ExtractorError(t *testing.T) {
	boom := errors.New("boom")
	c := classify.New(classify.ExtractorFunc(func(string, time.Time) ([]classify.Match, error) {
		return nil, boom
	}))

	_, err := c.Classify("明天", now)
	assert.ErrorIs(t, err, boom)
}
