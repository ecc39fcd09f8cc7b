package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
)

var (
	videoIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]+$`)
	handlePattern    = regexp.MustCompile(`^@[A-Za-z0-9._-]+$`)
	isoDuration      = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// ParseVideoID accepts a watch, short, embed or /v/ URL, or a bare video id.
func ParseVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty video reference: %w", apperrors.ErrInvalidInput)
	}
	if videoIDPattern.MatchString(input) {
		return input, nil
	}

	u, err := parseLooseURL(input)
	if err != nil {
		return "", fmt.Errorf("invalid YouTube URL %q: %w", input, apperrors.ErrInvalidInput)
	}

	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	parts := pathParts(u.Path)
	switch {
	case host == "youtu.be" && len(parts) > 0:
		id = parts[0]
	case host == "youtube.com" || host == "m.youtube.com" || host == "youtube-nocookie.com":
		switch {
		case len(parts) == 1 && parts[0] == "watch":
			id = u.Query().Get("v")
		case len(parts) >= 2 && (parts[0] == "embed" || parts[0] == "v" || parts[0] == "shorts" || parts[0] == "live"):
			id = parts[1]
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid YouTube URL %q: %w", input, apperrors.ErrInvalidInput)
	}
	return id, nil
}

type ChannelRefKind string

const (
	ChannelByID     ChannelRefKind = "id"
	ChannelByHandle ChannelRefKind = "handle"
	ChannelByCustom ChannelRefKind = "custom"
	ChannelByUser   ChannelRefKind = "user"
)

// ChannelRef is a parsed channel reference that still needs resolving to an id,
// unless Kind is ChannelByID.
type ChannelRef struct {
	Kind  ChannelRefKind
	Value string
}

func (r ChannelRef) String() string {
	switch r.Kind {
	case ChannelByHandle:
		return "@" + r.Value
	case ChannelByCustom:
		return "c/" + r.Value
	case ChannelByUser:
		return "user/" + r.Value
	}
	return r.Value
}

// ParseChannelRef accepts /channel/UC..., /c/name, /@handle and /user/name
// URLs, or a bare UC... id or @handle.
func ParseChannelRef(input string) (ChannelRef, error) {
	input = strings.TrimSpace(input)
	invalid := fmt.Errorf("invalid YouTube channel URL format: %w", apperrors.ErrInvalidInput)

	switch {
	case input == "":
		return ChannelRef{}, invalid
	case channelIDPattern.MatchString(input):
		return ChannelRef{Kind: ChannelByID, Value: input}, nil
	case handlePattern.MatchString(input):
		return ChannelRef{Kind: ChannelByHandle, Value: input[1:]}, nil
	}

	u, err := parseLooseURL(input)
	if err != nil {
		return ChannelRef{}, invalid
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "youtube.com" && host != "m.youtube.com" {
		return ChannelRef{}, invalid
	}

	parts := pathParts(u.Path)
	switch {
	case len(parts) >= 1 && handlePattern.MatchString(parts[0]):
		return ChannelRef{Kind: ChannelByHandle, Value: parts[0][1:]}, nil
	case len(parts) >= 2 && parts[0] == "channel" && channelIDPattern.MatchString(parts[1]):
		return ChannelRef{Kind: ChannelByID, Value: parts[1]}, nil
	case len(parts) >= 2 && parts[0] == "c":
		return ChannelRef{Kind: ChannelByCustom, Value: parts[1]}, nil
	case len(parts) >= 2 && parts[0] == "user":
		return ChannelRef{Kind: ChannelByUser, Value: parts[1]}, nil
	}
	return ChannelRef{}, invalid
}

// ParseISODuration converts an ISO 8601 duration such as PT1H2M3S to seconds.
func ParseISODuration(s string) (int, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", s, err)
		}
		total += n * unit
	}
	return total, nil
}

func parseLooseURL(s string) (*url.URL, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return url.Parse(s)
}

func pathParts(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
