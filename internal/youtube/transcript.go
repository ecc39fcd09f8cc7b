package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/common"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
	"github.com/KMMOrganisation/ParliQ/internal/core/transcript"
)

const (
	DefaultBaseURL = "https://www.youtube.com"
	maxPageBytes   = 8 << 20
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type CaptionTrack struct {
	BaseURL      string
	LanguageCode string
	Kind         string // "asr" for automatic captions
	Name         string
}

func (t CaptionTrack) Automatic() bool {
	return t.Kind == "asr"
}

// TranscriptFetcher scrapes caption tracks from the public watch page. It
// needs no API key.
type TranscriptFetcher struct {
	BaseURL   string
	client    *http.Client
	languages []string
	call      caller
	logger    *zap.Logger
}

func NewTranscriptFetcher(cfg config.YouTubeConfig, logger *zap.Logger) *TranscriptFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.HTTPTimeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &TranscriptFetcher{
		BaseURL:   DefaultBaseURL,
		client:    &http.Client{Timeout: timeout},
		languages: cfg.Languages,
		call:      newCaller(cfg.RequestsPerSecond, cfg.MaxRetries),
		logger:    logger.Named("transcript"),
	}
}

// Fetch returns the raw caption cues for a video, unnormalized.
func (f *TranscriptFetcher) Fetch(ctx context.Context, videoID string) ([]model.Segment, error) {
	page, err := f.get(ctx, f.BaseURL+"/watch?v="+url.QueryEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("failed to load watch page for %s: %w", videoID, err)
	}

	player, err := ExtractPlayerResponse(string(page))
	if err != nil {
		return nil, fmt.Errorf("video %s: %v: %w", videoID, err, apperrors.ErrNoTranscript)
	}

	if status := gjson.Get(player, "playabilityStatus.status").String(); status != "" && status != "OK" {
		reason := gjson.Get(player, "playabilityStatus.reason").String()
		return nil, fmt.Errorf("video %s is not playable (%s %s): %w", videoID, status, reason, apperrors.ErrNoTranscript)
	}

	tracks := CaptionTracks(player)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("video %s has no captions: %w", videoID, apperrors.ErrNoTranscript)
	}
	track := PickTrack(tracks, f.languages)
	f.logger.Debug("selected caption track",
		zap.String("video_id", videoID),
		zap.String("language", track.LanguageCode),
		zap.Bool("automatic", track.Automatic()))

	body, err := f.get(ctx, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download captions for %s: %w", videoID, err)
	}
	segs, err := transcript.ParseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("video %s has empty captions: %w", videoID, apperrors.ErrNoTranscript)
	}
	return segs, nil
}

const playerResponseMarker = "ytInitialPlayerResponse = "

// ExtractPlayerResponse pulls the object assigned to ytInitialPlayerResponse
// out of a watch page. Other mentions of the name are skipped.
func ExtractPlayerResponse(page string) (string, error) {
	idx := strings.Index(page, playerResponseMarker)
	if idx < 0 {
		return "", fmt.Errorf("player response not found")
	}
	rest := strings.TrimLeft(page[idx+len(playerResponseMarker):], " \t")
	if !strings.HasPrefix(rest, "{") {
		return "", fmt.Errorf("player response not found")
	}
	obj, ok := common.Balanced(rest, '{', '}')
	if !ok || !gjson.Valid(obj) {
		return "", fmt.Errorf("player response is malformed")
	}
	return obj, nil
}

func CaptionTracks(player string) []CaptionTrack {
	var tracks []CaptionTrack
	gjson.Get(player, "captions.playerCaptionsTracklistRenderer.captionTracks").ForEach(func(_, t gjson.Result) bool {
		base := t.Get("baseUrl").String()
		if base == "" {
			return true
		}
		tracks = append(tracks, CaptionTrack{
			BaseURL:      base,
			LanguageCode: t.Get("languageCode").String(),
			Kind:         t.Get("kind").String(),
			Name:         t.Get("name.simpleText").String(),
		})
		return true
	})
	return tracks
}

// PickTrack walks the preferred languages in order, taking a manual track
// over an automatic one for each. Without any match it returns the first
// track.
func PickTrack(tracks []CaptionTrack, languages []string) CaptionTrack {
	for _, lang := range languages {
		var auto *CaptionTrack
		for i := range tracks {
			if !strings.EqualFold(tracks[i].LanguageCode, lang) {
				continue
			}
			if !tracks[i].Automatic() {
				return tracks[i]
			}
			if auto == nil {
				auto = &tracks[i]
			}
		}
		if auto != nil {
			return *auto
		}
	}
	return tracks[0]
}

func (f *TranscriptFetcher) get(ctx context.Context, target string) ([]byte, error) {
	var body []byte
	err := f.call.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode, URL: target}
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		return err
	})
	return body, err
}
