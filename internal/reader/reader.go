// Package reader defines the rendering boundary for the reading view and the
// in-book search adapter built on top of it.
package reader

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/folioapp/folio-server/internal/errors"
)

// Renderer is the narrow capability interface the reading view and search
// adapter depend on. internal/epub provides the production implementation;
// tests substitute fakes.
type Renderer interface {
	ChapterCount() int
	ChapterText(i int) (string, error)
}

// Locator is a stable content position: a chapter index plus a rune offset
// into that chapter's plain text. Its string form is "loc(chapter:offset)".
type Locator struct {
	Chapter int
	Offset  int
}

// String renders the locator in its wire form.
func (l Locator) String() string {
	return fmt.Sprintf("loc(%d:%d)", l.Chapter, l.Offset)
}

// ParseLocator parses the "loc(chapter:offset)" wire form.
func ParseLocator(s string) (Locator, error) {
	var l Locator
	n, err := fmt.Sscanf(s, "loc(%d:%d)", &l.Chapter, &l.Offset)
	if err != nil || n != 2 {
		return Locator{}, errors.Validation(fmt.Sprintf("malformed locator %q", s))
	}
	if l.Chapter < 0 || l.Offset < 0 {
		return Locator{}, errors.Validation(fmt.Sprintf("malformed locator %q", s))
	}
	return l, nil
}

// PercentageOf maps a locator to a rounded whole-book completion percentage.
// Chapters weigh equally; the offset interpolates within its chapter.
func PercentageOf(r Renderer, l Locator) (int, error) {
	total := r.ChapterCount()
	if total == 0 || l.Chapter >= total {
		return 0, errors.Validation(fmt.Sprintf("locator %s out of range", l))
	}

	text, err := r.ChapterText(l.Chapter)
	if err != nil {
		return 0, fmt.Errorf("chapter text: %w", err)
	}

	within := 0.0
	if n := len([]rune(text)); n > 0 {
		within = math.Min(float64(l.Offset)/float64(n), 1)
	}

	pct := (float64(l.Chapter) + within) / float64(total) * 100
	return int(math.Round(pct)), nil
}

// Match is one in-book search hit.
type Match struct {
	Locator string `json:"locator"`
	// Excerpt is the surrounding text with the matched substring wrapped in
	// <mark> tags, original casing preserved.
	Excerpt string `json:"excerpt"`
	// Percent is the rounded completion percentage of the match position.
	Percent int `json:"percent"`
}

const (
	// excerptContext is the number of runes of surrounding text kept on each
	// side of a match.
	excerptContext = 60

	// maxMatches caps a single search. The reading view shows a scrollable
	// list; past this point more hits help nobody.
	maxMatches = 100
)

// Searcher runs case-insensitive literal substring search over a rendered
// book.
type Searcher struct {
	logger *slog.Logger
}

// NewSearcher creates a search adapter.
func NewSearcher(logger *slog.Logger) *Searcher {
	return &Searcher{logger: logger}
}

// Search walks every chapter looking for the query as a literal substring,
// ignoring case. An empty query returns no matches without touching the
// renderer.
func (s *Searcher) Search(ctx context.Context, r Renderer, query string) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	queryRunes := []rune(strings.ToLower(query))
	matches := []Match{}

	for chapter := range r.ChapterCount() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Canceled("search canceled")
		}

		text, err := r.ChapterText(chapter)
		if err != nil {
			s.logger.Warn("skipping unreadable chapter in search",
				"chapter", chapter,
				"error", err,
			)
			continue
		}

		runes := []rune(text)
		lower := []rune(strings.ToLower(text))

		for offset := indexRunes(lower, queryRunes, 0); offset >= 0; offset = indexRunes(lower, queryRunes, offset+1) {
			locator := Locator{Chapter: chapter, Offset: offset}
			pct, err := PercentageOf(r, locator)
			if err != nil {
				return nil, err
			}

			matches = append(matches, Match{
				Locator: locator.String(),
				Excerpt: buildExcerpt(runes, offset, len(queryRunes)),
				Percent: pct,
			})
			if len(matches) >= maxMatches {
				s.logger.Debug("search truncated", "query", query, "max", maxMatches)
				return matches, nil
			}
		}
	}

	return matches, nil
}

// indexRunes returns the first index >= from where needle occurs in haystack,
// or -1.
func indexRunes(haystack, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// buildExcerpt cuts a context window around the match and wraps the matched
// run in <mark> tags.
func buildExcerpt(runes []rune, offset, length int) string {
	start := max(offset-excerptContext, 0)
	end := min(offset+length+excerptContext, len(runes))

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(string(runes[start:offset]))
	b.WriteString("<mark>")
	b.WriteString(string(runes[offset : offset+length]))
	b.WriteString("</mark>")
	b.WriteString(string(runes[offset+length : end]))
	if end < len(runes) {
		b.WriteString("…")
	}
	return b.String()
}
