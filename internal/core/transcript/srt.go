package transcript

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

// ParseSRT parses SubRip text:
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
//
// Cues with an unreadable timing line are skipped.
func ParseSRT(text string) []model.Segment {
	var segments []model.Segment
	var cur *model.Segment
	var lines []string

	flush := func() {
		if cur != nil {
			cur.Text = CleanText(strings.Join(lines, " "))
			if cur.Text != "" {
				segments = append(segments, *cur)
			}
		}
		cur = nil
		lines = lines[:0]
	}

	sc := bufio.NewScanner(strings.NewReader(strings.ReplaceAll(text, "\r\n", "\n")))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		switch {
		case line == "":
			flush()
		case strings.Contains(line, "-->"):
			flush()
			start, end, err := parseTiming(line)
			if err != nil {
				continue
			}
			cur = &model.Segment{Start: start, End: end}
		case cur == nil:
			// cue index or stray text before a timing line
		default:
			lines = append(lines, line)
		}
	}
	flush()
	return segments
}

func parseTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Cue settings may follow the end time.
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("missing end time in %q", line)
	}
	end, err := ParseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp reads "hh:mm:ss,mmm" (or "." as the decimal mark, or
// "mm:ss.mmm") into seconds.
func ParseTimestamp(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if i < len(parts)-1 {
			total = (total + v) * 60
		} else {
			total += v
		}
	}
	return total, nil
}
