package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ Repository = (*Postgres)(nil)

// NewPostgres connects, pings and migrates the database at url.
func NewPostgres(ctx context.Context, url string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(stdlib.OpenDBFromPool(pool), logger.Named("migrate")); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool, logger: logger.Named("postgres")}, nil
}

const upsertVideoSQL = `
	INSERT INTO videos (id, title, channel, channel_id, description, published_at, duration, url, thumbnail_url, ingested_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		channel = EXCLUDED.channel,
		channel_id = EXCLUDED.channel_id,
		description = EXCLUDED.description,
		published_at = EXCLUDED.published_at,
		duration = EXCLUDED.duration,
		url = EXCLUDED.url,
		thumbnail_url = EXCLUDED.thumbnail_url,
		ingested_at = EXCLUDED.ingested_at`

const videoColumns = `id, title, channel, channel_id, description, published_at, duration, url, thumbnail_url, ingested_at`

func (r *Postgres) SaveVideo(ctx context.Context, v model.IngestedVideo) error {
	if v.Video.ID == "" {
		return fmt.Errorf("video id is required: %w", apperrors.ErrInvalidInput)
	}
	vid := v.Video

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertVideoSQL,
		vid.ID, vid.Title, vid.Channel, vid.ChannelID, vid.Description,
		vid.PublishedAt, vid.Duration, vid.URL, vid.ThumbnailURL, vid.IngestedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_segments WHERE video_id = $1`, vid.ID); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM entities WHERE video_id = $1`, vid.ID); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}

	if len(v.Segments) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"transcript_segments"},
			[]string{"video_id", "sequence", "text", "start_time", "end_time"},
			pgx.CopyFromSlice(len(v.Segments), func(i int) ([]any, error) {
				s := v.Segments[i]
				return []any{vid.ID, s.Sequence, s.Text, s.Start, s.End}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert segments: %w", err)
		}
	}

	if len(v.Entities) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"entities"},
			[]string{"video_id", "sequence", "type", "text", "start_time", "end_time", "confidence", "context"},
			pgx.CopyFromSlice(len(v.Entities), func(i int) ([]any, error) {
				e := v.Entities[i]
				return []any{vid.ID, e.Sequence, string(e.Type), e.Text, e.Start, e.End, e.Confidence, e.Context}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entities: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit video %s: %w", vid.ID, err)
	}
	return nil
}

func (r *Postgres) GetVideo(ctx context.Context, id string) (model.IngestedVideo, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	v, err := scanPGVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.IngestedVideo{}, fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return model.IngestedVideo{}, fmt.Errorf("failed to get video: %w", err)
	}

	segs, err := r.segments(ctx, `WHERE video_id = $1`, id)
	if err != nil {
		return model.IngestedVideo{}, err
	}
	ents, err := r.entities(ctx, `WHERE video_id = $1`, id)
	if err != nil {
		return model.IngestedVideo{}, err
	}
	return model.IngestedVideo{Video: v, Segments: segs, Entities: ents}, nil
}

func (r *Postgres) ListVideos(ctx context.Context) ([]model.Video, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var out []model.Video
	for rows.Next() {
		v, err := scanPGVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Postgres) All(ctx context.Context) ([]model.IngestedVideo, error) {
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

func (r *Postgres) Transcript(ctx context.Context, id string) ([]model.Segment, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return r.segments(ctx, `WHERE video_id = $1`, id)
}

func (r *Postgres) Entities(ctx context.Context, id string) ([]model.Entity, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return r.entities(ctx, `WHERE video_id = $1`, id)
}

func (r *Postgres) DeleteVideo(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *Postgres) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `
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

func (r *Postgres) Close() error {
	r.pool.Close()
	return nil
}

func (r *Postgres) exists(ctx context.Context, id string) error {
	var found bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM videos WHERE id = $1)`, id).Scan(&found); err != nil {
		return fmt.Errorf("failed to check video: %w", err)
	}
	if !found {
		return fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *Postgres) segments(ctx context.Context, where string, args ...any) ([]model.Segment, error) {
	rows, err := r.pool.Query(ctx, `
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

func (r *Postgres) entities(ctx context.Context, where string, args ...any) ([]model.Entity, error) {
	rows, err := r.pool.Query(ctx, `
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

func scanPGVideo(row scanner) (model.Video, error) {
	var v model.Video
	err := row.Scan(&v.ID, &v.Title, &v.Channel, &v.ChannelID, &v.Description,
		&v.PublishedAt, &v.Duration, &v.URL, &v.ThumbnailURL, &v.IngestedAt)
	v.PublishedAt = v.PublishedAt.UTC()
	v.IngestedAt = v.IngestedAt.UTC()
	return v, err
}
