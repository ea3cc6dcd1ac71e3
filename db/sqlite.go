package db

import (
	"database/sql"
	"embed"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/earshot-audio/earshot/models"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{
		DB: db,
	}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, "."); err != nil {
		return err
	}

	return nil
}

func (s *SqliteStore) GetPreference(key string) (string, error) {
	var value string
	err := s.DB.Get(&value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SqliteStore) SetPreference(key, value string) error {
	_, err := s.DB.Exec(
		"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SqliteStore) DeletePreference(key string) error {
	_, err := s.DB.Exec("DELETE FROM preferences WHERE key = ?", key)
	return err
}

type followRow struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	ShowID          int64     `db:"show_id"`
	ShowName        string    `db:"show_name"`
	ShowDescription string    `db:"show_description"`
	ArtworkKey      string    `db:"artwork_key"`
	Interested      bool      `db:"is_interested"`
	CreatedAt       time.Time `db:"created_at"`
}

func (s *SqliteStore) CachedFollows() ([]models.Follow, error) {
	var rows []followRow
	if err := s.DB.Select(&rows, "SELECT id, user_id, show_id, show_name, show_description, artwork_key, is_interested, created_at FROM cached_follows ORDER BY created_at"); err != nil {
		return nil, err
	}
	follows := make([]models.Follow, 0, len(rows))
	for _, row := range rows {
		follows = append(follows, models.Follow{
			ID:     row.ID,
			UserID: row.UserID,
			Show: models.Show{
				ID:          row.ShowID,
				Name:        row.ShowName,
				Description: row.ShowDescription,
				ArtworkKey:  row.ArtworkKey,
			},
			Interested: row.Interested,
			CreatedAt:  row.CreatedAt,
		})
	}
	return follows, nil
}

func (s *SqliteStore) ReplaceFollows(follows []models.Follow) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return err
	}
	var committed bool
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.Exec("DELETE FROM cached_follows"); err != nil {
		return err
	}
	for _, follow := range follows {
		_, err := tx.Exec(
			"INSERT INTO cached_follows (id, user_id, show_id, show_name, show_description, artwork_key, is_interested, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			follow.ID,
			follow.UserID,
			follow.Show.ID,
			follow.Show.Name,
			follow.Show.Description,
			follow.Show.ArtworkKey,
			follow.Interested,
			follow.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type categoryRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	ParentID  *int64 `db:"parent_id"`
	ClipCount int    `db:"clip_count"`
}

func (s *SqliteStore) CachedCategories() ([]models.Category, error) {
	var rows []categoryRow
	if err := s.DB.Select(&rows, "SELECT id, name, parent_id, clip_count FROM cached_categories ORDER BY id"); err != nil {
		return nil, err
	}
	categories := make([]models.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, models.Category{
			ID:        row.ID,
			Name:      row.Name,
			ParentID:  row.ParentID,
			ClipCount: row.ClipCount,
		})
	}
	return categories, nil
}

func (s *SqliteStore) ReplaceCategories(categories []models.Category) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return err
	}
	var committed bool
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.Exec("DELETE FROM cached_categories"); err != nil {
		return err
	}
	for _, category := range categories {
		_, err := tx.Exec(
			"INSERT INTO cached_categories (id, name, parent_id, clip_count) VALUES (?, ?, ?, ?)",
			category.ID, category.Name, category.ParentID, category.ClipCount,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type scoreRow struct {
	ID         int64   `db:"id"`
	CategoryID int64   `db:"category_id"`
	Score      float64 `db:"score"`
}

func (s *SqliteStore) CachedCategoryScores() ([]models.CategoryScore, error) {
	var rows []scoreRow
	if err := s.DB.Select(&rows, "SELECT id, category_id, score FROM cached_scores ORDER BY id"); err != nil {
		return nil, err
	}
	scores := make([]models.CategoryScore, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, models.CategoryScore{
			ID:         row.ID,
			CategoryID: row.CategoryID,
			Score:      row.Score,
		})
	}
	return scores, nil
}

func (s *SqliteStore) ReplaceCategoryScores(scores []models.CategoryScore) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return err
	}
	var committed bool
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.Exec("DELETE FROM cached_scores"); err != nil {
		return err
	}
	for _, score := range scores {
		_, err := tx.Exec(
			"INSERT INTO cached_scores (id, category_id, score) VALUES (?, ?, ?)",
			score.ID, score.CategoryID, score.Score,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Reset clears every table in one transaction so a logout is observed
// as a single atomic wipe.
func (s *SqliteStore) Reset() error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return err
	}
	var committed bool
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"preferences", "cached_follows", "cached_categories", "cached_scores"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
