package youtube

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

const DefaultMaxVideos = 10

// Client wraps the YouTube Data API with rate limiting and retries.
type Client struct {
	svc     *yt.Service
	call    caller
	timeout time.Duration
	logger  *zap.Logger
}

type Channel struct {
	ID    string
	Title string
}

// NewClient requires an API key. Extra options are appended after the key,
// which lets tests point the client at a local endpoint.
func NewClient(ctx context.Context, cfg config.YouTubeConfig, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube data api key: %w", apperrors.ErrNotConfigured)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	svc, err := yt.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	timeout := cfg.HTTPTimeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		svc:     svc,
		call:    newCaller(cfg.RequestsPerSecond, cfg.MaxRetries),
		timeout: timeout,
		logger:  logger.Named("youtube"),
	}, nil
}

// FetchVideo loads snippet and content details for one video.
func (c *Client) FetchVideo(ctx context.Context, id string) (model.Video, error) {
	var resp *yt.VideoListResponse
	err := c.call.do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var err error
		resp, err = c.svc.Videos.List([]string{"snippet", "contentDetails"}).Id(id).Context(callCtx).Do()
		return err
	})
	if err != nil {
		return model.Video{}, fmt.Errorf("failed to fetch video %s: %w", id, err)
	}
	if len(resp.Items) == 0 {
		return model.Video{}, fmt.Errorf("video %s: %w", id, apperrors.ErrNotFound)
	}

	item := resp.Items[0]
	v := model.Video{ID: id, URL: model.WatchURL(id)}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.Channel = s.ChannelTitle
		v.ChannelID = s.ChannelId
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			v.PublishedAt = t.UTC()
		}
		v.ThumbnailURL = bestThumbnail(s.Thumbnails)
	}
	if item.ContentDetails != nil {
		if secs, err := ParseISODuration(item.ContentDetails.Duration); err == nil {
			v.Duration = secs
		} else {
			c.logger.Debug("unparseable duration", zap.String("video_id", id), zap.String("duration", item.ContentDetails.Duration))
		}
	}
	if v.ThumbnailURL == "" {
		v.ThumbnailURL = ThumbnailURL(id)
	}
	return v, nil
}

// ResolveChannel turns any channel reference into a channel id and title.
func (c *Client) ResolveChannel(ctx context.Context, ref ChannelRef) (Channel, error) {
	if ref.Kind == ChannelByCustom {
		return c.searchChannel(ctx, ref.Value)
	}

	var resp *yt.ChannelListResponse
	err := c.call.do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req := c.svc.Channels.List([]string{"id", "snippet"})
		switch ref.Kind {
		case ChannelByHandle:
			req = req.ForHandle(ref.Value)
		case ChannelByUser:
			req = req.ForUsername(ref.Value)
		default:
			req = req.Id(ref.Value)
		}
		var err error
		resp, err = req.Context(callCtx).Do()
		return err
	})
	if err != nil {
		return Channel{}, fmt.Errorf("failed to resolve channel %s: %w", ref, err)
	}
	if len(resp.Items) == 0 {
		return Channel{}, fmt.Errorf("channel %s: %w", ref, apperrors.ErrNotFound)
	}

	ch := Channel{ID: resp.Items[0].Id}
	if resp.Items[0].Snippet != nil {
		ch.Title = resp.Items[0].Snippet.Title
	}
	return ch, nil
}

func (c *Client) searchChannel(ctx context.Context, name string) (Channel, error) {
	var resp *yt.SearchListResponse
	err := c.call.do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var err error
		resp, err = c.svc.Search.List([]string{"snippet"}).Q(name).Type("channel").MaxResults(1).Context(callCtx).Do()
		return err
	})
	if err != nil {
		return Channel{}, fmt.Errorf("failed to search channel %s: %w", name, err)
	}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.ChannelId == "" {
			continue
		}
		ch := Channel{ID: item.Id.ChannelId}
		if item.Snippet != nil {
			ch.Title = item.Snippet.ChannelTitle
		}
		return ch, nil
	}
	return Channel{}, fmt.Errorf("channel c/%s: %w", name, apperrors.ErrNotFound)
}

// ListChannelVideos returns the newest video ids of a channel, most recent
// first, optionally restricted to those published after since.
func (c *Client) ListChannelVideos(ctx context.Context, channelID string, since time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultMaxVideos
	}

	var ids []string
	pageToken := ""
	for len(ids) < limit {
		pageSize := int64(limit - len(ids))
		if pageSize > 50 {
			pageSize = 50
		}

		var resp *yt.SearchListResponse
		err := c.call.do(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			req := c.svc.Search.List([]string{"snippet"}).
				ChannelId(channelID).
				Type("video").
				Order("date").
				MaxResults(pageSize)
			if !since.IsZero() {
				req = req.PublishedAfter(since.UTC().Format(time.RFC3339))
			}
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			resp, err = req.Context(callCtx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list videos for channel %s: %w", channelID, err)
		}

		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" && len(ids) < limit {
				ids = append(ids, item.Id.VideoId)
			}
		}
		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

func bestThumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// ThumbnailURL is the static thumbnail location for any public video.
func ThumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

// PlaceholderVideo is used when the Data API is unavailable.
func PlaceholderVideo(videoID string) model.Video {
	return model.Video{
		ID:           videoID,
		Title:        "YouTube video " + videoID,
		URL:          model.WatchURL(videoID),
		ThumbnailURL: ThumbnailURL(videoID),
	}
}
