package telegram

import (
	"context"
	"testing"

	"github.com/celestix/gotgproto/storage"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func testSessionData() *session.Data {
	return &session.Data{
		DC:        2,
		Addr:      "149.154.167.50:443",
		AuthKey:   make([]byte, 256),
		AuthKeyID: []byte{1, 2, 3, 4, 5, 6, 7, 8},
		Salt:      77,
	}
}

func TestSessionStorage_EmptyIsNotFound(t *testing.T) {
	s, err := NewSessionStorage(newTestDB(t))
	require.NoError(t, err)

	_, err = s.LoadSession(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionStorage_ImportAndLoad(t *testing.T) {
	db := newTestDB(t)
	s, err := NewSessionStorage(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, testSessionData()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.DC)
	assert.Equal(t, "149.154.167.50:443", got.Addr)
	assert.Equal(t, int64(77), got.Salt)

	var rows []storage.Session
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, storage.LatestVersion, rows[0].Version)
}

func TestSessionStorage_ImportReplaces(t *testing.T) {
	db := newTestDB(t)
	s, err := NewSessionStorage(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, testSessionData()))
	next := testSessionData()
	next.DC = 4
	require.NoError(t, s.Import(ctx, next))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.DC)

	var count int64
	require.NoError(t, db.Model(&storage.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSessionStorage_ImportNil(t *testing.T) {
	s, err := NewSessionStorage(newTestDB(t))
	require.NoError(t, err)

	assert.Error(t, s.Import(context.Background(), nil))
}
