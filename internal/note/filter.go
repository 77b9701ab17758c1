package note

import (
	"slices"
	"sort"
	"strings"
)

// SortByDate orders notes by date, newest first. Ties keep their input order.
func SortByDate(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Date > notes[j].Date
	})
}

// HasTag reports whether tag is one of the note's tags (exact match).
func (n *Note) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// Matches reports whether query is a case-insensitive substring of the
// title, the content, or any tag.
func (n *Note) Matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Filter returns the notes for which keep is true, preserving order.
func Filter(notes []Note, keep func(*Note) bool) []Note {
	out := make([]Note, 0, len(notes))
	for i := range notes {
		if keep(&notes[i]) {
			out = append(out, notes[i])
		}
	}
	return out
}

// DistinctTags returns the sorted union of all tags.
func DistinctTags(notes []Note) []string {
	seen := make(map[string]bool)
	tags := make([]string, 0)
	for _, n := range notes {
		for _, t := range n.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Count computes Stats over an already locale-filtered slice.
func Count(notes []Note) Stats {
	s := Stats{Total: len(notes), Tags: len(DistinctTags(notes))}
	for _, n := range notes {
		switch n.Type {
		case KindThought:
			s.Thoughts++
		case KindNote:
			s.Notes++
		}
	}
	return s
}
