package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

func sampleVideo(id string) model.IngestedVideo {
	return model.IngestedVideo{
		Video: model.Video{
			ID:           id,
			Title:        "PMQs " + id,
			Channel:      "UK Parliament",
			ChannelID:    "UC123",
			Description:  "Prime Minister's Questions",
			PublishedAt:  time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
			Duration:     3723,
			URL:          model.WatchURL(id),
			ThumbnailURL: "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
			IngestedAt:   time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC),
		},
		// deliberately out of order
		Segments: []model.Segment{
			{VideoID: id, Sequence: 1, Text: "The NHS funding bill", Start: 2, End: 5.5},
			{VideoID: id, Sequence: 0, Text: "Order, order.", Start: 0, End: 2},
		},
		Entities: []model.Entity{
			{VideoID: id, Sequence: 0, Type: model.EntityPolicy, Text: "NHS funding bill", Start: 2, End: 5.5, Confidence: 0.9, Context: "The NHS funding bill"},
			{VideoID: id, Sequence: 1, Type: model.EntityEvent, Text: "Order", Start: 0, End: 2, Confidence: 0.7},
		},
	}
}

// runContract exercises the behaviour every Repository must share.
func runContract(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		in := sampleVideo("abc")
		require.NoError(t, repo.SaveVideo(ctx, in))

		got, err := repo.GetVideo(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, in.Video, got.Video)
		require.Len(t, got.Segments, 2)
		assert.Equal(t, 0, got.Segments[0].Sequence)
		assert.Equal(t, "Order, order.", got.Segments[0].Text)
		require.Len(t, got.Entities, 2)
		assert.Equal(t, "Order", got.Entities[0].Text)
		assert.Equal(t, model.EntityPolicy, got.Entities[1].Type)
	})

	t.Run("ordered reads", func(t *testing.T) {
		segs, err := repo.Transcript(ctx, "abc")
		require.NoError(t, err)
		require.Len(t, segs, 2)
		assert.Equal(t, 0, segs[0].Sequence)
		assert.Equal(t, 1, segs[1].Sequence)

		ents, err := repo.Entities(ctx, "abc")
		require.NoError(t, err)
		require.Len(t, ents, 2)
		assert.LessOrEqual(t, ents[0].Start, ents[1].Start)
	})

	t.Run("replace on re-save", func(t *testing.T) {
		in := sampleVideo("abc")
		in.Video.Title = "PMQs revisited"
		in.Segments = in.Segments[:1]
		in.Entities = nil
		require.NoError(t, repo.SaveVideo(ctx, in))

		got, err := repo.GetVideo(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "PMQs revisited", got.Video.Title)
		assert.Len(t, got.Segments, 1)
		assert.Empty(t, got.Entities)

		counts, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, Counts{Videos: 1, Segments: 1, Entities: 0}, counts)
	})

	t.Run("ingestion order", func(t *testing.T) {
		require.NoError(t, repo.SaveVideo(ctx, sampleVideo("def")))
		require.NoError(t, repo.SaveVideo(ctx, sampleVideo("ghi")))
		// re-saving keeps the first position
		require.NoError(t, repo.SaveVideo(ctx, sampleVideo("abc")))

		videos, err := repo.ListVideos(ctx)
		require.NoError(t, err)
		var ids []string
		for _, v := range videos {
			ids = append(ids, v.ID)
		}
		assert.Equal(t, []string{"abc", "def", "ghi"}, ids)

		all, err := repo.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "def", all[1].Video.ID)
		assert.Len(t, all[1].Segments, 2)
		assert.Len(t, all[2].Entities, 2)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetVideo(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = repo.Transcript(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = repo.Entities(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteVideo(ctx, "missing"), apperrors.ErrNotFound)
	})

	t.Run("invalid", func(t *testing.T) {
		err := repo.SaveVideo(ctx, model.IngestedVideo{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, repo.DeleteVideo(ctx, "def"))
		_, err := repo.GetVideo(ctx, "def")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		counts, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, Counts{Videos: 2, Segments: 4, Entities: 4}, counts)
	})
}

func TestMemory(t *testing.T) {
	runContract(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	in := sampleVideo("abc")
	require.NoError(t, repo.SaveVideo(ctx, in))

	in.Segments[0].Text = "mutated"
	got, err := repo.GetVideo(ctx, "abc")
	require.NoError(t, err)
	got.Entities[0].Text = "also mutated"

	again, err := repo.GetVideo(ctx, "abc")
	require.NoError(t, err)
	for _, s := range again.Segments {
		assert.NotEqual(t, "mutated", s.Text)
	}
	for _, e := range again.Entities {
		assert.NotEqual(t, "also mutated", e.Text)
	}
}

func TestMemory_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_ = repo.SaveVideo(ctx, sampleVideo(fmt.Sprintf("v%d", i)))
			_, _ = repo.All(ctx)
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, counts.Videos)
}

func TestSQLite(t *testing.T) {
	repo, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "parliq.db"))
	require.NoError(t, err)
	defer repo.Close()
	runContract(t, repo)
}

func TestSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parliq.db")

	repo, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveVideo(ctx, sampleVideo("abc")))
	require.NoError(t, repo.Close())

	repo, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.GetVideo(ctx, "abc")
	require.NoError(t, err)
	assert.Len(t, got.Segments, 2)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, config.StorageConfig{Driver: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, repo)

	repo, err = Open(ctx, config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, config.StorageConfig{Driver: "mongo"}, zap.NewNop())
	assert.Error(t, err)
}

func TestPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "parliq",
				"POSTGRES_USER":     "parliq",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://parliq:test_password@%s:%s/parliq?sslmode=disable", host, port.Port())
	repo, err := NewPostgres(ctx, url, zap.NewNop())
	require.NoError(t, err)
	defer repo.Close()

	runContract(t, repo)

	// migrations are idempotent
	again, err := NewPostgres(ctx, url, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}
