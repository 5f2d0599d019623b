package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLStore(t *testing.T) Store {
	t.Helper()
	// A file DSN: the sql.DB pool opens multiple connections, and each
	// sqlite :memory: connection would be its own empty database.
	store, err := NewStore(context.Background(), Config{
		Backend: BackendSQL,
		Driver:  "sqlite3",
		DSN:     filepath.Join(t.TempDir(), "bench.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.PutRun(ctx, testRecord(i)))
	}

	rec, err := store.LatestRun(ctx, "bench01", "master")
	require.NoError(t, err)
	assert.Equal(t, "id-2", rec.ID)
	assert.Equal(t, "bench01", rec.Hostname)
	assert.Equal(t, "master", rec.Branch)
	assert.Equal(t, "meta", rec.MetaReport)

	require.Len(t, rec.Results, 1)
	res := rec.Results[0]
	assert.Equal(t, "sum_1d", res.Name)
	assert.Equal(t, int64(1000), res.Iterations)
	assert.Equal(t, 102.0, res.CPUTime)
	assert.Equal(t, []float64{102.0}, res.CPUSamples)
}

func TestSQLStore_RecentRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openSQLStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.PutRun(ctx, testRecord(i)))
	}

	recs, err := store.RecentRuns(ctx, "bench01", "master", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "id-4", recs[0].ID)
	assert.Equal(t, "id-3", recs[1].ID)
}

func TestSQLStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := openSQLStore(t)

	_, err := store.LatestRun(ctx, "bench01", "master")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.RecentRuns(ctx, "bench01", "feature", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := openSQLStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.PutRun(ctx, testRecord(i)))
	}

	dropped, err := store.Prune(ctx, "bench01", "master", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)

	recs, err := store.RecentRuns(ctx, "bench01", "master", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, "id-4", recs[0].ID)
}
