package socialcard

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title wrapping limits, in characters.
const (
	FirstLineMax = 18
	OtherLineMax = 24
	MaxLines     = 4
)

// NormalizeTitle trims, collapses whitespace and upper-cases a headline.
func NormalizeTitle(title string) string {
	return cases.Upper(language.Und).String(strings.Join(strings.Fields(title), " "))
}

// WrapTitle greedily fills lines word by word. A word that does not fit
// starts a new line; a single word longer than the limit gets a line to
// itself and is never split. Once maxLines lines are full the remaining
// words are dropped.
func WrapTitle(title string, maxLines int) []string {
	lines := make([]string, 0, maxLines)
	if maxLines <= 0 {
		return lines
	}

	current := ""
	for _, w := range strings.Fields(title) {
		limit := OtherLineMax
		if len(lines) == 0 {
			limit = FirstLineMax
		}

		next := w
		if current != "" {
			next = current + " " + w
		}
		if utf8.RuneCountInString(next) <= limit {
			current = next
			continue
		}

		if current != "" {
			lines = append(lines, current)
		}
		current = w
		if len(lines) >= maxLines {
			current = ""
			break
		}
	}

	if current != "" && len(lines) < maxLines {
		lines = append(lines, current)
	}
	return lines
}
