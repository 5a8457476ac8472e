// Package feed prepares user-written posts for the room feed.
package feed

import (
	"errors"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const MaxPostLength = 2000

var (
	ErrEmptyPost   = errors.New("post content is required")
	ErrPostTooLong = errors.New("post content is too long")
)

var policy = bluemonday.StrictPolicy()

// Sanitize strips all markup from content and returns the plain text to
// store. Posts are rendered as text, so entities are decoded again after
// sanitising.
func Sanitize(content string) (string, error) {
	clean := html.UnescapeString(policy.Sanitize(content))
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", ErrEmptyPost
	}
	if utf8.RuneCountInString(clean) > MaxPostLength {
		return "", ErrPostTooLong
	}
	return clean, nil
}
