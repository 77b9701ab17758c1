package note

import (
	"fmt"
	"strings"

	"github.com/hpungsan/folio/internal/errors"
)

// MaxIDLength bounds ids so they stay valid file names.
const MaxIDLength = 200

// reservedIDs collide with fixed routes under /api/notes/ and /{locale}/notes/.
var reservedIDs = map[string]bool{"tags": true, "stats": true, "new": true}

// NormalizeTags trims tags, drops empty ones and removes duplicates.
// The first occurrence wins and order is preserved; tags are not sorted.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ValidateID rejects ids that cannot be used as a file name stem.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.NewInvalidRequest("id is required")
	case len(id) > MaxIDLength:
		return errors.NewInvalidRequest(fmt.Sprintf("id exceeds %d characters", MaxIDLength))
	case strings.ContainsAny(id, `/\`) || strings.Contains(id, ".."):
		return errors.NewInvalidRequest("id must not contain path separators or '..'")
	case strings.HasPrefix(id, "."):
		return errors.NewInvalidRequest("id must not start with '.'")
	case strings.ContainsAny(id, "\x00\n\r"):
		return errors.NewInvalidRequest("id contains control characters")
	case reservedIDs[id]:
		return errors.NewInvalidRequest(fmt.Sprintf("id %q is reserved", id))
	}
	return nil
}

// ValidateNew checks a note before it is created.
func ValidateNew(n *Note) error {
	if !n.Type.Valid() {
		return errors.NewInvalidRequest(fmt.Sprintf("type must be %q or %q", KindThought, KindNote))
	}
	if strings.TrimSpace(n.Title) == "" {
		return errors.NewInvalidRequest("title is required")
	}
	if strings.TrimSpace(n.Content) == "" {
		return errors.NewInvalidRequest("content is required")
	}
	if strings.TrimSpace(n.Date) == "" {
		return errors.NewInvalidRequest("date is required")
	}
	return validateTags(n.Tags)
}

// ValidatePatch checks the fields present in an update.
func ValidatePatch(p Patch) error {
	if p.Empty() {
		return errors.NewInvalidRequest("at least one field must be provided")
	}
	if p.Type != nil && !p.Type.Valid() {
		return errors.NewInvalidRequest(fmt.Sprintf("type must be %q or %q", KindThought, KindNote))
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return errors.NewInvalidRequest("title must not be empty")
	}
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return errors.NewInvalidRequest("content must not be empty")
	}
	if p.Date != nil && strings.TrimSpace(*p.Date) == "" {
		return errors.NewInvalidRequest("date must not be empty")
	}
	if p.Tags != nil {
		return validateTags(*p.Tags)
	}
	return nil
}

// validateTags rejects characters the single-line tag list cannot carry.
func validateTags(tags []string) error {
	for _, t := range tags {
		if strings.ContainsAny(t, ",[]\n\r") {
			return errors.NewInvalidRequest(fmt.Sprintf("tag %q must not contain commas, brackets or newlines", t))
		}
	}
	return nil
}
