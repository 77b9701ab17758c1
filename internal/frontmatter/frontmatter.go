// Package frontmatter reads and writes the restricted header format used by
// note and article files: a "---" line, "key: value" lines, a closing "---"
// line, then free-form body text.
//
// The grammar is deliberately small. There is no nesting; values are scalars
// except tags, which use a single-line bracket list.
package frontmatter

import (
	"errors"
	"strconv"
	"strings"
)

// Delimiter opens and closes the header block.
const Delimiter = "---"

// ErrNoFrontmatter is returned when the text does not start with a header
// block. Callers treat it as "item invalid", not as a failure.
var ErrNoFrontmatter = errors.New("frontmatter: no header block")

// Recognized header keys.
const (
	KeyTitle       = "title"
	KeyDescription = "description"
	KeyDate        = "date"
	KeyType        = "type"
	KeyCategory    = "category"
	KeyTags        = "tags"
	KeyMood        = "mood"
	KeySource      = "source"
	KeySourceURL   = "sourceUrl"
	KeyReadingTime = "readingTime"
)

// ReadingTime is an integer minute count that may be absent or unparseable.
type ReadingTime struct {
	Minutes int
	Valid   bool
}

// Header holds the recognized keys of a header block.
// Absent keys are left at their zero value.
type Header struct {
	Title       string
	Description string
	Date        string
	Type        string
	Category    string
	Tags        []string
	Mood        string
	Source      string
	SourceURL   string
	ReadingTime ReadingTime
}

// Document is a parsed file: its header and the text after the closing delimiter.
type Document struct {
	Header Header
	Body   string
}

// Parse splits raw into header and body.
// Unknown keys and lines without a "key: value" shape are ignored.
func Parse(raw string) (*Document, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || !isDelimiter(lines[0]) {
		return nil, ErrNoFrontmatter
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if isDelimiter(lines[i]) {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, ErrNoFrontmatter
	}

	doc := &Document{}
	for _, line := range lines[1:closing] {
		key, value, ok := strings.Cut(strings.TrimRight(line, "\r"), ": ")
		if !ok || key == "" {
			continue
		}
		doc.Header.set(key, strings.TrimSpace(value))
	}

	body := strings.Join(lines[closing+1:], "\n")
	doc.Body = strings.TrimLeft(body, "\r\n")
	return doc, nil
}

// set assigns a raw value to the field named by key.
func (h *Header) set(key, value string) {
	switch key {
	case KeyTitle:
		h.Title = unquote(value)
	case KeyDescription:
		h.Description = unquote(value)
	case KeyDate:
		h.Date = unquote(value)
	case KeyType:
		h.Type = unquote(value)
	case KeyCategory:
		h.Category = unquote(value)
	case KeyTags:
		h.Tags = parseTags(value)
	case KeyMood:
		h.Mood = unquote(value)
	case KeySource:
		h.Source = unquote(value)
	case KeySourceURL:
		h.SourceURL = unquote(value)
	case KeyReadingTime:
		h.ReadingTime = parseReadingTime(unquote(value))
	}
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == Delimiter
}

// unquote strips one layer of wrapping double quotes. Inside a quoted value
// the escapes written by Encode (\\, \n, \r) are reversed.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	return unescape(s[1 : len(s)-1])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			// Unknown escape: keep both characters.
			b.WriteByte(c)
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}

// parseTags reads `[a, "b", c]`. Brackets are optional.
func parseTags(value string) []string {
	value = strings.NewReplacer("[", "", "]", "").Replace(value)
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := unquote(strings.TrimSpace(p))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseReadingTime accepts a leading integer ("7", "7 min").
func parseReadingTime(value string) ReadingTime {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && (value[end] >= '0' && value[end] <= '9' || end == 0 && (value[end] == '-' || value[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return ReadingTime{}
	}
	return ReadingTime{Minutes: n, Valid: true}
}
