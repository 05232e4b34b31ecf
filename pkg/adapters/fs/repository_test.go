package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/capsule/pkg/adapters/fs"
	"github.com/aretw0/capsule/pkg/core"
)

// setupRepo creates a gitless repository inside a temporary vault.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	vaultPath := filepath.Join(t.TempDir(), "vault")
	cfg := fs.Config{
		Path:     vaultPath,
		Gitless:  true,
		Location: time.UTC,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return fs.NewRepository(cfg), vaultPath
}

func writeStore(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, fs.DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func sampleRecord(id string) core.Record {
	target := time.Date(2026, 10, 21, 15, 0, 0, 0, time.UTC)
	return core.Record{
		ID:         id,
		RecordedAt: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Category:   core.CategoryTodo,
		Content:    "下周三下午三点开会, 带上\"报告\"",
		TargetTime: &target,
		Status:     core.StatusPending,
		LinkedCost: decimal.Zero,
	}
}

func TestInitialize(t *testing.T) {
	t.Run("creates directory and header", func(t *testing.T) {
		repo, path := setupRepo(t)
		require.NoError(t, repo.Initialize(context.Background()))

		data, err := os.ReadFile(filepath.Join(path, fs.DefaultFile))
		require.NoError(t, err)
		assert.Equal(t, strings.Join(fs.Header, ",")+"\n", string(data))
	})

	t.Run("empty file is treated as new", func(t *testing.T) {
		repo, path := setupRepo(t)
		writeStore(t, path, "")
		require.NoError(t, repo.Initialize(context.Background()))

		records, err := repo.Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("must exist fails on missing vault", func(t *testing.T) {
		repo, _ := setupRepo(t, func(c *fs.Config) { c.MustExist = true })
		assert.Error(t, repo.Initialize(context.Background()))
	})

	t.Run("idempotent", func(t *testing.T) {
		repo, _ := setupRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Initialize(ctx))
		require.NoError(t, repo.Append(ctx, sampleRecord("a")))
		require.NoError(t, repo.Initialize(ctx))

		records, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestRoundTrip(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Initialize(ctx))

	first := sampleRecord("a")
	second := sampleRecord("b")
	second.Category = core.CategoryFinance
	second.Content = "午饭 35.5"
	second.TargetTime = nil
	second.Status = core.StatusDone
	second.LinkedCost = decimal.RequireFromString("35.5")

	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, first.Content, records[0].Content)
	assert.True(t, first.RecordedAt.Equal(records[0].RecordedAt))
	require.NotNil(t, records[0].TargetTime)
	assert.True(t, first.TargetTime.Equal(*records[0].TargetTime))

	assert.Equal(t, core.CategoryFinance, records[1].Category)
	assert.Nil(t, records[1].TargetTime)
	assert.Equal(t, core.StatusDone, records[1].Status)
	assert.True(t, records[1].LinkedCost.Equal(decimal.RequireFromString("35.5")))

	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestOverwrite(t *testing.T) {
	repo, path := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Append(ctx, sampleRecord("a")))
	require.NoError(t, repo.Append(ctx, sampleRecord("b")))

	done := sampleRecord("b")
	done.Status = core.StatusDone
	done.LinkedCost = decimal.NewFromInt(50)
	require.NoError(t, repo.Overwrite(ctx, []core.Record{done}))

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.StatusDone, records[0].Status)

	data, err := os.ReadFile(filepath.Join(path, fs.DefaultFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), ",50.0,b\n")

	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "capsule-tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestMigration(t *testing.T) {
	t.Run("english header without id", func(t *testing.T) {
		repo, path := setupRepo(t)
		writeStore(t, path, "recorded_at,category,content,target_time,status,linked_cost\n"+
			"2026-10-01 08:00:00,Todo,买机票,,Pending,\n"+
			"2026-10-02 12:00:00,Finance,午饭,,Done,nan\n")

		before, err := repo.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, before, 2)
		assert.NotEmpty(t, before[0].ID)

		require.NoError(t, repo.Initialize(context.Background()))

		after, err := repo.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, after, 2)
		assert.Equal(t, before[0].ID, after[0].ID, "migration keeps derived ids")
		assert.True(t, after[1].LinkedCost.IsZero())

		state := repo.State().(fs.RepositoryState)
		assert.Equal(t, fs.SchemaVersion, state.Schema)
	})

	t.Run("localized header", func(t *testing.T) {
		repo, path := setupRepo(t)
		writeStore(t, path, "\ufeff记录时间,分类,内容,目标时间,状态,关联花销\n"+
			"2026-10-01 08:00:00,待办,交房租,2026-10-05 09:00:00,Pending,0.0\n"+
			"2026-10-01 09:00:00,想法,写一本书,,Pending,\n")

		require.NoError(t, repo.Initialize(context.Background()))
		records, err := repo.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, core.CategoryTodo, records[0].Category)
		assert.NotNil(t, records[0].TargetTime)
		assert.Equal(t, core.CategoryIdea, records[1].Category)

		data, err := os.ReadFile(filepath.Join(path, fs.DefaultFile))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), strings.Join(fs.Header, ",")))
	})

	t.Run("append refuses unmigrated store", func(t *testing.T) {
		repo, path := setupRepo(t)
		writeStore(t, path, "recorded_at,category,content,target_time,status,linked_cost\n")
		assert.Error(t, repo.Append(context.Background(), sampleRecord("a")))
	})
}

func TestMalformedStore(t *testing.T) {
	repo, path := setupRepo(t)
	content := "recorded_at,category,content\n2026-10-01 08:00:00,Todo,x\n"
	file := writeStore(t, path, content)

	err := repo.Initialize(context.Background())
	assert.ErrorIs(t, err, core.ErrMalformedStore)

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrMalformedStore)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "malformed store must not be rewritten")

	require.NoError(t, repo.Reset(context.Background()))
	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadOnly(t *testing.T) {
	repo, path := setupRepo(t, func(c *fs.Config) { c.ReadOnly = true })
	writeStore(t, path, strings.Join(fs.Header, ",")+"\n")
	ctx := context.Background()

	require.NoError(t, repo.Initialize(ctx))
	assert.ErrorIs(t, repo.Append(ctx, sampleRecord("a")), core.ErrReadOnly)
	assert.ErrorIs(t, repo.Overwrite(ctx, nil), core.ErrReadOnly)
	assert.ErrorIs(t, repo.Reset(ctx), core.ErrReadOnly)
	assert.ErrorIs(t, repo.RecordTransitions(ctx, core.Transition{RecordID: "a"}), core.ErrReadOnly)
}

func TestJournal(t *testing.T) {
	repo, path := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Initialize(ctx))

	empty, err := repo.Transitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	at := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordTransitions(ctx,
		core.Transition{RecordID: "a", Kind: core.TransitionStatusChanged, From: "Pending", To: "Done", At: at},
		core.Transition{RecordID: "a", Kind: core.TransitionCategoryChanged, From: "Todo", To: "Schedule", At: at},
	))
	require.NoError(t, repo.RecordTransitions(ctx,
		core.Transition{RecordID: "b", Kind: core.TransitionCreated, To: "Finance", At: at},
	))

	ts, err := repo.Transitions(ctx)
	require.NoError(t, err)
	require.Len(t, ts, 3)
	assert.Equal(t, core.TransitionCategoryChanged, ts[1].Kind)
	assert.Equal(t, "Schedule", ts[1].To)
	assert.True(t, at.Equal(ts[2].At))

	_, err = os.Stat(filepath.Join(path, fs.DefaultSystemDir, fs.JournalFile))
	require.NoError(t, err)

	require.NoError(t, repo.Reset(ctx))
	ts, err = repo.Transitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestCost(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "", want: "0.0"},
		{raw: "nan", want: "0.0"},
		{raw: "NaN", want: "0.0"},
		{raw: "50", want: "50.0"},
		{raw: "12.35", want: "12.35"},
		{raw: "-1", wantErr: true},
		{raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := fs.ParseCost(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, fs.FormatCost(d))
		})
	}
}

func TestGitVersioning(t *testing.T) {
	if !fs.IsGitInstalled() {
		t.Skip("git not installed")
	}
	repo, path := setupRepo(t, func(c *fs.Config) {
		c.Gitless = false
		c.AutoInit = true
	})
	t.Setenv("GIT_AUTHOR_NAME", "capsule")
	t.Setenv("GIT_AUTHOR_EMAIL", "capsule@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "capsule")
	t.Setenv("GIT_COMMITTER_EMAIL", "capsule@example.com")

	ctx := context.Background()
	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Append(ctx, sampleRecord("a")))

	_, err := os.Stat(filepath.Join(path, ".git"))
	require.NoError(t, err)
}
