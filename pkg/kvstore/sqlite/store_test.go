package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eva-app/evaclient/pkg/kvstore"
)

var _ kvstore.Store = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "kv_test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("token", `{"value":"tok1"}`))

	v, ok, err := s.Get("token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"value":"tok1"}`, v)

	_, ok, err = s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("k", "one"))
	require.NoError(t, s.Set("k", "two"))

	v, _, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRemoveAndClear(t *testing.T) {
	s := newTestStore(t)

	_ = s.Set("a", "1")
	_ = s.Set("b", "2")
	_ = s.Set("c", "3")

	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Remove("a"))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys)

	require.NoError(t, s.Clear())
	n, err := s.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "kv_reopen.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Set("user_info", `{"value":{"id":"u1"}}`))
	require.NoError(t, s.Close())

	s, err = New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get("user_info")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"value":{"id":"u1"}}`, v)
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewWithDB(db)
	require.NoError(t, err)

	diskErr := errors.New("disk I/O error")
	mock.ExpectExec("INSERT OR REPLACE INTO kv_entries").WillReturnError(diskErr)
	mock.ExpectQuery("SELECT entry_value FROM kv_entries").WillReturnError(diskErr)
	mock.ExpectExec("DELETE FROM kv_entries").WillReturnError(diskErr)

	err = s.Set("k", "v")
	assert.ErrorIs(t, err, diskErr)
	assert.Contains(t, err.Error(), "kv set")

	_, ok, err := s.Get("k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, diskErr)

	assert.ErrorIs(t, s.Clear(), diskErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_entries").
		WillReturnError(errors.New("read-only file system"))

	_, err = NewWithDB(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate kv db")
}
