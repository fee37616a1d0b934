package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-matcher/internal/relevance"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), "", filepath.Join(t.TempDir(), "history", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func fixedNow(t *testing.T, ts time.Time) {
	t.Helper()

	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
}

func rankedPostings() []relevance.ScoredPosting {
	return []relevance.ScoredPosting{
		{
			JobPosting:     relevance.JobPosting{ID: "a", Title: "Python Developer", Company: "Acme", Link: "https://example.com/a", Source: "file"},
			RelevanceScore: 45.52,
			RawScore:       45.52,
		},
		{
			JobPosting:        relevance.JobPosting{ID: "b", Title: "Backend"},
			RelevanceScore:    12.5,
			RawScore:          22.5,
			Penalty:           10,
			MatchedExclusions: []string{"php"},
		},
	}
}

func TestNewRun(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fixedNow(t, ts)

	run := NewRun([]string{"python"}, nil, rankedPostings())

	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, ts, run.CreatedAt)
	assert.Equal(t, []string{}, run.Excluded)
	assert.Equal(t, 2, run.Count)
	assert.Equal(t, 1, run.Results[0].Rank)
	assert.Equal(t, 2, run.Results[1].Rank)
	assert.Equal(t, 10, run.Results[1].Penalty)
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := NewRun([]string{"python", "sql"}, []string{"php"}, rankedPostings())
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Skills, got.Skills)
	assert.Equal(t, run.Excluded, got.Excluded)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, run.Results, got.Results)
}

func TestSaveRunWithoutResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := NewRun([]string{"go"}, nil, nil)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Count)
	assert.Empty(t, got.Results)

	require.Error(t, s.SaveRun(ctx, nil))
	require.Error(t, s.SaveRun(ctx, run), "duplicate id must fail")
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		fixedNow(t, base.Add(time.Duration(i)*time.Second+time.Duration(i)*100*time.Millisecond))
		run := NewRun([]string{"go"}, nil, rankedPostings()[:i])
		require.NoError(t, s.SaveRun(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	assert.Equal(t, 2, runs[0].Count)
	assert.Nil(t, runs[0].Results)

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ids[2], runs[0].ID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	require.ErrorContains(t, err, "unsupported driver")
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}
