package archive

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/air-quality/internal/logic"
)

var at = time.Date(2026, 1, 1, 12, 0, 0, 500_000_000, time.Local)

func openTemp(t *testing.T) (*Archive, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "samples.db")
	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, path
}

func TestRecordAndRecent(t *testing.T) {
	a, _ := openTemp(t)

	readings := []int{100, 350, 200}
	for i, r := range readings {
		s := logic.Sample{Elapsed: time.Duration(i+1) * 500 * time.Millisecond, Reading: r, FanOn: r > 300}
		require.NoError(t, a.Record(s, at.Add(time.Duration(i)*500*time.Millisecond)))
	}

	n, err := a.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := a.Recent(2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 350, rows[0].Reading)
	assert.True(t, rows[0].FanOn)
	assert.Equal(t, time.Second, rows[0].Elapsed)
	assert.True(t, rows[0].Time.Equal(at.Add(500*time.Millisecond)))
	assert.Equal(t, 200, rows[1].Reading)
	assert.False(t, rows[1].FanOn)
}

func TestReopenKeepsSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Record(logic.Sample{Reading: 1}, at))
	require.NoError(t, a.Close())

	a, err = Open(path)
	require.NoError(t, err)
	defer a.Close()

	n, err := a.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRejectsOutOfRangeReading(t *testing.T) {
	a, _ := openTemp(t)

	assert.Error(t, a.Record(logic.Sample{Reading: 1024}, at))
}

func TestRecordAfterClose(t *testing.T) {
	a, _ := openTemp(t)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Record(logic.Sample{}, at), os.ErrClosed)
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")
	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'))`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
