package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/capsule/pkg/adapters/fs"
	"github.com/aretw0/capsule/pkg/adapters/sqlite"
	"github.com/aretw0/capsule/pkg/core"
)

func TestInitAdapters(t *testing.T) {
	t.Run("fs", func(t *testing.T) {
		vault := t.TempDir()
		repo, err := Init(vault, WithAutoInit(true), WithVersioning(false))
		require.NoError(t, err)
		assert.IsType(t, &fs.Repository{}, repo)
		assert.FileExists(t, filepath.Join(vault, fs.DefaultFile))
	})

	t.Run("sqlite", func(t *testing.T) {
		vault := t.TempDir()
		repo, err := Init(vault, WithAdapter(AdapterSQLite))
		require.NoError(t, err)
		store, ok := repo.(*sqlite.Store)
		require.True(t, ok)
		defer store.Close()
		assert.FileExists(t, filepath.Join(vault, sqlite.DefaultFile))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Init(t.TempDir(), WithAdapter("s3"))
		assert.ErrorContains(t, err, "unknown adapter")
	})

	t.Run("injected", func(t *testing.T) {
		injected := fs.NewRepository(fs.Config{Path: t.TempDir(), Gitless: true})
		repo, err := Init("ignored", WithRepository(injected))
		require.NoError(t, err)
		assert.Same(t, injected, repo)
	})
}

func TestInitMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := Init(missing, WithVersioning(false), WithMustExist(true))
	assert.Error(t, err)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewCapturesWithDefaultClassifier(t *testing.T) {
	vault := t.TempDir()
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	svc, err := New(vault,
		WithAutoInit(true),
		WithVersioning(false),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	rec, err := svc.Capture(context.Background(), "我想写一本书")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryIdea, rec.Category)
	assert.Equal(t, core.StatusPending, rec.Status)

	rec, err = svc.Capture(context.Background(), "买了一杯咖啡")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryFinance, rec.Category)
	assert.Equal(t, core.StatusDone, rec.Status)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWithConfig(t *testing.T) {
	off := false
	cfg := DefaultConfig()
	cfg.Adapter = AdapterSQLite
	cfg.StoreFile = "life.csv"
	cfg.Versioning = &off
	cfg.Location = "UTC"

	o := parseOptions([]Option{WithConfig(&cfg), WithAdapter(AdapterFS)})
	assert.Equal(t, AdapterFS, o.adapter, "later options win")
	assert.Equal(t, "life.csv", o.config["store_file"])
	assert.Equal(t, true, o.config["gitless"])
	assert.Equal(t, time.UTC, o.config["location"])
}

func TestNewCapturesDatedTodo(t *testing.T) {
	// Saturday morning.
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	svc, err := New(t.TempDir(),
		WithAutoInit(true),
		WithVersioning(false),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	rec, err := svc.Capture(context.Background(), "下周三去北京开会花了500元")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTodo, rec.Category, "a future date wins over the finance keywords")
	assert.Equal(t, core.StatusPending, rec.Status)
	require.NotNil(t, rec.TargetTime)
	assert.True(t, rec.TargetTime.After(now))
	assert.Equal(t, time.Wednesday, rec.TargetTime.Weekday())
	assert.Equal(t, "2026-10-21", rec.TargetTime.Format(time.DateOnly))

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].TargetTime)
	assert.Equal(t, "2026-10-21", records[0].TargetTime.Format(time.DateOnly))
}
