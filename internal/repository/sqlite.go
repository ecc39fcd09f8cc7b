package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

// sqliteSchema mirrors the Postgres migrations. Times are stored as
// RFC 3339 text.
var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS videos (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		channel       TEXT NOT NULL DEFAULT '',
		channel_id    TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		published_at  TEXT NOT NULL,
		duration      INTEGER NOT NULL DEFAULT 0,
		url           TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		ingested_at   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transcript_segments (
		video_id   TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		sequence   INTEGER NOT NULL,
		text       TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time   REAL NOT NULL,
		PRIMARY KEY (video_id, sequence)
	)`,
	`CREATE TABLE IF NOT EXISTS entities (
		video_id   TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		sequence   INTEGER NOT NULL,
		type       TEXT NOT NULL CHECK (type IN ('Person', 'Party', 'Policy', 'Location', 'Event', 'Quote')),
		text       TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time   REAL NOT NULL,
		confidence REAL NOT NULL,
		context    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (video_id, sequence)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_video_start ON entities (video_id, start_time, sequence)`,
}

type SQLite struct {
	db *sql.DB
}

var _ Repository = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps the foreign_keys pragma in effect and avoids
	// SQLITE_BUSY between writers
	db.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (r *SQLite) SaveVideo(ctx context.Context, v model.IngestedVideo) error {
	if v.Video.ID == "" {
		return fmt.Errorf("video id is required: %w", apperrors.ErrInvalidInput)
	}
	vid := v.Video

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO videos (`+videoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			channel = excluded.channel,
			channel_id = excluded.channel_id,
			description = excluded.description,
			published_at = excluded.published_at,
			duration = excluded.duration,
			url = excluded.url,
			thumbnail_url = excluded.thumbnail_url,
			ingested_at = excluded.ingested_at`,
		vid.ID, vid.Title, vid.Channel, vid.ChannelID, vid.Description,
		formatTime(vid.PublishedAt), vid.Duration, vid.URL, vid.ThumbnailURL, formatTime(vid.IngestedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcript_segments WHERE video_id = ?`, vid.ID); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE video_id = ?`, vid.ID); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}

	segStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript_segments (video_id, sequence, text, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer segStmt.Close()
	for _, s := range v.Segments {
		if _, err := segStmt.ExecContext(ctx, vid.ID, s.Sequence, s.Text, s.Start, s.End); err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", s.Sequence, err)
		}
	}

	entStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (video_id, sequence, type, text, start_time, end_time, confidence, context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare entity insert: %w", err)
	}
	defer entStmt.Close()
	for _, e := range v.Entities {
		if _, err := entStmt.ExecContext(ctx, vid.ID, e.Sequence, string(e.Type), e.Text, e.Start, e.End, e.Confidence, e.Context); err != nil {
			return fmt.Errorf("failed to insert entity %d: %w", e.Sequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit video %s: %w", vid.ID, err)
	}
	return nil
}

func (r *SQLite) GetVideo(ctx context.Context, id string) (model.IngestedVideo, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanSQLiteVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.IngestedVideo{}, fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return model.IngestedVideo{}, fmt.Errorf("failed to get video: %w", err)
	}

	segs, err := r.segments(ctx, `WHERE video_id = ?`, id)
	if err != nil {
		return model.IngestedVideo{}, err
	}
	ents, err := r.entities(ctx, `WHERE video_id = ?`, id)
	if err != nil {
		return model.IngestedVideo{}, err
	}
	return model.IngestedVideo{Video: v, Segments: segs, Entities: ents}, nil
}

func (r *SQLite) ListVideos(ctx context.Context) ([]model.Video, error) {
	// an upsert keeps the rowid, so rowid order is ingestion order
	rows, err := r.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var out []model.Video
	for rows.Next() {
		v, err := scanSQLiteVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLite) All(ctx context.Context) ([]model.IngestedVideo, error) {
	videos, err := r.ListVideos(ctx)
	if err != nil {
		return nil, err
	}
	segs, err := r.segments(ctx, "")
	if err != nil {
		return nil, err
	}
	ents, err := r.entities(ctx, "")
	if err != nil {
		return nil, err
	}
	return assemble(videos, segs, ents), nil
}

func (r *SQLite) Transcript(ctx context.Context, id string) ([]model.Segment, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return r.segments(ctx, `WHERE video_id = ?`, id)
}

func (r *SQLite) Entities(ctx context.Context, id string) ([]model.Entity, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return r.entities(ctx, `WHERE video_id = ?`, id)
}

func (r *SQLite) DeleteVideo(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *SQLite) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM videos),
			(SELECT COUNT(*) FROM transcript_segments),
			(SELECT COUNT(*) FROM entities)`,
	).Scan(&c.Videos, &c.Segments, &c.Entities)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return c, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func (r *SQLite) exists(ctx context.Context, id string) error {
	var found int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM videos WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check video: %w", err)
	}
	return nil
}

func (r *SQLite) segments(ctx context.Context, where string, args ...any) ([]model.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT video_id, sequence, text, start_time, end_time
		FROM transcript_segments `+where+`
		ORDER BY video_id, sequence`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var out []model.Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLite) entities(ctx context.Context, where string, args ...any) ([]model.Entity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT video_id, sequence, type, text, start_time, end_time, confidence, context
		FROM entities `+where+`
		ORDER BY video_id, start_time, sequence`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanSQLiteVideo(row scanner) (model.Video, error) {
	var v model.Video
	var published, ingested string
	if err := row.Scan(&v.ID, &v.Title, &v.Channel, &v.ChannelID, &v.Description,
		&published, &v.Duration, &v.URL, &v.ThumbnailURL, &ingested); err != nil {
		return v, err
	}
	var err error
	if v.PublishedAt, err = parseTime(published); err != nil {
		return v, err
	}
	if v.IngestedAt, err = parseTime(ingested); err != nil {
		return v, err
	}
	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}
