package temporal

import (
	"regexp"
	"testing"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferFuture(t *testing.T) {
	// Saturday noon.
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.Local)
	wednesday := time.Date(2026, 10, 14, 9, 0, 0, 0, time.Local)
	morning := time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		span string
		in   time.Time
		want time.Time
	}{
		{"future untouched", "下周三", now.AddDate(0, 0, 4), now.AddDate(0, 0, 4)},
		{"bare weekday rolls a week", "周三", wednesday, wednesday.AddDate(0, 0, 7)},
		{"past marker kept", "上周三", wednesday, wednesday},
		{"anchored weekday kept", "本周三", wednesday, wednesday},
		{"bare time rolls a day", "9点", morning, morning.AddDate(0, 0, 1)},
		{"explicit day kept", "今天9点", morning, morning},
		{"yesterday kept", "昨天", now.AddDate(0, 0, -1), now.AddDate(0, 0, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preferFuture(tt.span, tt.in, now)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestNew_Locale(t *testing.T) {
	_, err := New(Config{})
	require.NoError(t, err)

	_, err = New(Config{Locale: "en"})
	require.NoError(t, err)

	_, err = New(Config{Locale: "fr"})
	assert.Error(t, err)
}

func TestExtract_Empty(t *testing.T) {
	e, err := New(Config{PreferFuture: true})
	require.NoError(t, err)

	matches, err := e.Extract("   ", time.Now())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestExtract_Chinese(t *testing.T) {
	e, err := New(Config{PreferFuture: true})
	require.NoError(t, err)

	// Saturday 10:00.
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		text     string
		wantSpan string
		wantDate string // empty means no match
	}{
		{"next weekday", "下周三去北京开会花了500元", "下周三", "2026-10-21"},
		{"yesterday", "昨天看了电影", "昨天", "2026-10-16"},
		{"tomorrow", "明天买机票", "明天", "2026-10-18"},
		{"no date", "我想学吉他", "", ""},
		{"no date with todo keyword", "记得带伞", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := e.Extract(tt.text, now)
			require.NoError(t, err)
			if tt.wantDate == "" {
				assert.Empty(t, matches)
				return
			}
			require.Len(t, matches, 1)
			assert.Contains(t, matches[0].Text, tt.wantSpan)
			assert.Equal(t, tt.wantDate, matches[0].Time.Format(time.DateOnly))
		})
	}
}

func TestExtract_RecoversRulePanic(t *testing.T) {
	w := when.New(nil)
	w.Add(&rules.F{
		RegExp: regexp.MustCompile("开会"),
		Applier: func(m *rules.Match, c *rules.Context, o *rules.Options, ref time.Time) (bool, error) {
			panic("slice bounds out of range")
		},
	})
	e := &Extractor{parser: w}

	var err error
	assert.NotPanics(t, func() {
		_, err = e.Extract("下周三去北京开会", time.Now())
	})
	assert.Error(t, err)
}
