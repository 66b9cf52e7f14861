// Package repository persists subtitle metadata in SQLite. Subtitles are
// stored under their bare provider-native file id together with a deduped
// feature-details record keyed by catalog id.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/models"
)

// Store manages subtitle persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Filter narrows FindSubtitles results. Zero fields are ignored.
type Filter struct {
	CatalogID string
	Language  string
}

// Open initializes or connects to the subtitle database and applies
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS feature_details (
            id INTEGER PRIMARY KEY,
            feature_type TEXT NOT NULL,
            year TEXT,
            title TEXT,
            feature_name TEXT,
            catalog_id TEXT NOT NULL UNIQUE,
            season_number INTEGER,
            episode_number INTEGER
        )`,
		`CREATE TABLE IF NOT EXISTS subtitles (
            id INTEGER PRIMARY KEY,
            external_id TEXT NOT NULL,
            provider TEXT NOT NULL,
            file_id TEXT NOT NULL UNIQUE,
            created_on TEXT NOT NULL,
            url TEXT,
            release_name TEXT NOT NULL,
            comments TEXT,
            download_count INTEGER NOT NULL DEFAULT 0,
            language TEXT NOT NULL,
            feature_details_id INTEGER NOT NULL REFERENCES feature_details(id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_subtitles_language ON subtitles(language)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertSubtitle stores one subtitle's metadata. The feature-details record
// is deduped by catalog id: a subtitle for an already-known feature reuses
// the existing row.
func (s *Store) InsertSubtitle(ctx context.Context, sub models.Subtitle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("insert subtitle", err)
	}
	defer func() { _ = tx.Rollback() }()

	featureID, err := upsertFeatureDetails(ctx, tx, sub.FeatureDetails)
	if err != nil {
		return apperrors.NewInternalError("insert subtitle", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subtitles (
            external_id, provider, file_id, created_on, url, release_name,
            comments, download_count, language, feature_details_id
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ExternalID,
		string(sub.Provider),
		sub.FileID,
		sub.CreatedOn.UTC().Format(time.RFC3339Nano),
		nullableString(sub.URL),
		sub.ReleaseName,
		nullableString(sub.Comments),
		sub.DownloadCount,
		sub.Language,
		featureID,
	)
	if err != nil {
		return apperrors.NewInternalError("insert subtitle", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("insert subtitle", err)
	}
	return nil
}

func upsertFeatureDetails(ctx context.Context, tx *sql.Tx, fd models.FeatureDetails) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM feature_details WHERE catalog_id = ?`, fd.CatalogID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO feature_details (
            feature_type, year, title, feature_name, catalog_id,
            season_number, episode_number
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(fd.FeatureType),
		fd.Year,
		fd.Title,
		fd.FeatureName,
		fd.CatalogID,
		nullableInt(fd.SeasonNumber),
		nullableInt(fd.EpisodeNumber),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FindSubtitles returns already-ingested subtitles matching the filter, in
// insertion order.
func (s *Store) FindSubtitles(ctx context.Context, filter Filter) ([]models.Subtitle, error) {
	query := `SELECT s.external_id, s.provider, s.file_id, s.created_on, s.url,
            s.release_name, s.comments, s.download_count, s.language,
            f.feature_type, f.year, f.title, f.feature_name, f.catalog_id,
            f.season_number, f.episode_number
        FROM subtitles s
        JOIN feature_details f ON f.id = s.feature_details_id
        WHERE 1=1`
	args := []any{}
	if filter.CatalogID != "" {
		query += " AND f.catalog_id = ?"
		args = append(args, filter.CatalogID)
	}
	if filter.Language != "" {
		query += " AND s.language = ?"
		args = append(args, filter.Language)
	}
	query += " ORDER BY s.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("find subtitles", err)
	}
	defer rows.Close()

	var results []models.Subtitle
	for rows.Next() {
		sub, err := scanSubtitle(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("find subtitles", err)
		}
		results = append(results, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("find subtitles", err)
	}
	return results, nil
}

// FindByFileID retrieves one subtitle by its stored (bare native) file id.
func (s *Store) FindByFileID(ctx context.Context, fileID string) (*models.Subtitle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.external_id, s.provider, s.file_id, s.created_on, s.url,
            s.release_name, s.comments, s.download_count, s.language,
            f.feature_type, f.year, f.title, f.feature_name, f.catalog_id,
            f.season_number, f.episode_number
        FROM subtitles s
        JOIN feature_details f ON f.id = s.feature_details_id
        WHERE s.file_id = ?`, fileID)

	sub, err := scanSubtitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("subtitle", fileID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("find subtitle", err)
	}
	return &sub, nil
}

// IncrementDownloadCount bumps the popularity counter for a stored subtitle.
func (s *Store) IncrementDownloadCount(ctx context.Context, fileID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subtitles SET download_count = download_count + 1 WHERE file_id = ?`, fileID)
	if err != nil {
		return apperrors.NewInternalError("increment download count", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubtitle(row rowScanner) (models.Subtitle, error) {
	var (
		sub       models.Subtitle
		createdOn string
		url       sql.NullString
		comments  sql.NullString
		season    sql.NullInt64
		episode   sql.NullInt64
		provider  string
		ftype     string
	)
	err := row.Scan(
		&sub.ExternalID, &provider, &sub.FileID, &createdOn, &url,
		&sub.ReleaseName, &comments, &sub.DownloadCount, &sub.Language,
		&ftype, &sub.FeatureDetails.Year, &sub.FeatureDetails.Title,
		&sub.FeatureDetails.FeatureName, &sub.FeatureDetails.CatalogID,
		&season, &episode,
	)
	if err != nil {
		return models.Subtitle{}, err
	}

	sub.Provider = models.Provider(provider)
	sub.URL = url.String
	sub.Comments = comments.String
	sub.FeatureDetails.FeatureType = models.FeatureType(ftype)
	sub.FeatureDetails.SeasonNumber = int(season.Int64)
	sub.FeatureDetails.EpisodeNumber = int(episode.Int64)
	if parsed, err := time.Parse(time.RFC3339Nano, createdOn); err == nil {
		sub.CreatedOn = parsed
	}
	return sub, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
