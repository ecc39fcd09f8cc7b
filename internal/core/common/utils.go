package common

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FindJSON locates the first JSON object or array in an LLM reply.
// It tolerates markdown fences and prose around the payload.
func FindJSON(response string) (string, error) {
	objStart := strings.IndexByte(response, '{')
	arrStart := strings.IndexByte(response, '[')

	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if s, ok := Balanced(response[arrStart:], '[', ']'); ok && gjson.Valid(s) {
			return s, nil
		}
	}
	if objStart >= 0 {
		if s, ok := Balanced(response[objStart:], '{', '}'); ok && gjson.Valid(s) {
			return s, nil
		}
	}

	trimmed := strings.TrimSpace(response)
	if gjson.Valid(trimmed) {
		return trimmed, nil
	}
	return "", fmt.Errorf("no JSON found in response")
}

// Balanced returns the prefix of s that closes the bracket s starts with,
// skipping brackets inside JSON strings.
func Balanced(s string, open, close byte) (string, bool) {
	if s == "" || s[0] != open {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
