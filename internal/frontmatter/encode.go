package frontmatter

import (
	"strconv"
	"strings"
)

// Encode renders h and body in the file format read by Parse.
// Every non-empty field is written; optional fields that are empty are
// omitted entirely. Tags are always written.
func Encode(h Header, body string) string {
	var b strings.Builder

	b.WriteString(Delimiter + "\n")
	writeField(&b, KeyTitle, h.Title, true)
	writeField(&b, KeyDescription, h.Description, true)
	writeField(&b, KeyDate, h.Date, true)
	writeField(&b, KeyType, h.Type, false)
	writeField(&b, KeyCategory, h.Category, false)

	b.WriteString(KeyTags + ": [")
	for i, t := range h.Tags {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(t))
	}
	b.WriteString("]\n")

	if h.ReadingTime.Valid {
		b.WriteString(KeyReadingTime + ": " + strconv.Itoa(h.ReadingTime.Minutes) + "\n")
	}
	writeField(&b, KeyMood, h.Mood, false)
	writeField(&b, KeySource, h.Source, false)
	writeField(&b, KeySourceURL, h.SourceURL, false)
	b.WriteString(Delimiter + "\n")

	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, key, value string, always bool) {
	if value == "" && !always {
		return
	}
	b.WriteString(key + ": " + quote(value) + "\n")
}

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

// quote wraps s in double quotes, escaping what would break the line grammar.
func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}
