package db

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earshot-audio/earshot/migrations"
	"github.com/earshot-audio/earshot/models"

	_ "modernc.org/sqlite"
)

func newMigratedStore(t *testing.T) *SqliteStore {
	t.Helper()
	conn, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store := &SqliteStore{DB: conn}
	require.NoError(t, store.ApplyMigrations(migrations.GetMigrations()))
	return store
}

func TestSqliteStore_PreferenceRoundtrip(t *testing.T) {
	store := newMigratedStore(t)

	// 1. A missing key reads back as empty without an error
	value, err := store.GetPreference(PrefAuthToken)
	require.NoError(t, err)
	assert.Empty(t, value)

	// 2. Set then read
	require.NoError(t, store.SetPreference(PrefAuthToken, "tok-1"))
	value, err = store.GetPreference(PrefAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", value)

	// 3. Setting again overwrites in place
	require.NoError(t, store.SetPreference(PrefAuthToken, "tok-2"))
	value, err = store.GetPreference(PrefAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", value)

	// 4. Delete takes it back to absent
	require.NoError(t, store.DeletePreference(PrefAuthToken))
	value, err = store.GetPreference(PrefAuthToken)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSqliteStore_ReplaceFollows(t *testing.T) {
	store := newMigratedStore(t)

	first := []models.Follow{
		{
			ID:         1,
			UserID:     42,
			Show:       models.Show{ID: 10, Name: "Old Show"},
			Interested: true,
			CreatedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, store.ReplaceFollows(first))

	// Replace swaps the whole cached set, it never merges
	second := []models.Follow{
		{
			ID:         2,
			UserID:     42,
			Show:       models.Show{ID: 11, Name: "New Show", Description: "fresh"},
			Interested: false,
			CreatedAt:  time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, store.ReplaceFollows(second))

	follows, err := store.CachedFollows()
	require.NoError(t, err)
	require.Len(t, follows, 1)
	assert.Equal(t, int64(2), follows[0].ID)
	assert.Equal(t, "New Show", follows[0].Show.Name)
	assert.False(t, follows[0].Interested)
}

func TestSqliteStore_ReplaceCategories(t *testing.T) {
	store := newMigratedStore(t)

	parent := int64(1)
	categories := []models.Category{
		{ID: 1, Name: "Technology", ClipCount: 12},
		{ID: 2, Name: "Programming", ParentID: &parent, ClipCount: 4},
	}
	require.NoError(t, store.ReplaceCategories(categories))

	cached, err := store.CachedCategories()
	require.NoError(t, err)
	require.Len(t, cached, 2)
	assert.Nil(t, cached[0].ParentID)
	require.NotNil(t, cached[1].ParentID)
	assert.Equal(t, int64(1), *cached[1].ParentID)
}

func TestSqliteStore_ReplaceCategoryScores(t *testing.T) {
	store := newMigratedStore(t)

	require.NoError(t, store.ReplaceCategoryScores([]models.CategoryScore{
		{ID: 1, CategoryID: 2, Score: 0.75},
	}))

	scores, err := store.CachedCategoryScores()
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 0.75, scores[0].Score)
}

func TestSqliteStore_Reset(t *testing.T) {
	store := newMigratedStore(t)

	require.NoError(t, store.SetPreference(PrefUsername, "sam"))
	require.NoError(t, store.ReplaceFollows([]models.Follow{{ID: 1, Show: models.Show{ID: 10}}}))
	require.NoError(t, store.ReplaceCategories([]models.Category{{ID: 1, Name: "Tech"}}))
	require.NoError(t, store.ReplaceCategoryScores([]models.CategoryScore{{ID: 1, CategoryID: 1, Score: 1}}))

	require.NoError(t, store.Reset())

	value, err := store.GetPreference(PrefUsername)
	require.NoError(t, err)
	assert.Empty(t, value)

	follows, err := store.CachedFollows()
	require.NoError(t, err)
	assert.Empty(t, follows)

	categories, err := store.CachedCategories()
	require.NoError(t, err)
	assert.Empty(t, categories)

	scores, err := store.CachedCategoryScores()
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestSqliteStore_ReplaceFollowsRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	store := &SqliteStore{DB: sqlx.NewDb(conn, "sqlmock")}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cached_follows").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO cached_follows").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.ReplaceFollows([]models.Follow{{ID: 1, Show: models.Show{ID: 10}}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqliteStore_GetPreferenceSurfacesDriverErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	store := &SqliteStore{DB: sqlx.NewDb(conn, "sqlmock")}

	mock.ExpectQuery("SELECT value FROM preferences").WillReturnError(errors.New("database is locked"))

	_, err = store.GetPreference(PrefAuthToken)
	assert.Error(t, err)
}
