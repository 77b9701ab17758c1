package note

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/folio/internal/errors"
)

func strPtr(s string) *string { return &s }

func sample(id, date string, kind Kind, tags ...string) Note {
	return Note{
		ID:      id,
		Type:    kind,
		Title:   "Title " + id,
		Content: "Content " + id,
		Tags:    tags,
		Date:    date,
		Locale:  "zh",
	}
}

func TestSortByDate(t *testing.T) {
	notes := []Note{
		sample("a", "2025-01-01", KindNote),
		sample("b", "2025-06-01", KindNote),
		sample("c", "2024-12-31", KindThought),
		sample("d", "2025-06-01", KindThought),
	}
	SortByDate(notes)

	ids := []string{notes[0].ID, notes[1].ID, notes[2].ID, notes[3].ID}
	// b and d tie; stable sort keeps b first.
	require.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestMatches(t *testing.T) {
	n := Note{Title: "Learning Rust", Content: "Ownership and borrowing", Tags: []string{"Systems"}}

	require.True(t, n.Matches("rust"))
	require.True(t, n.Matches("BORROW"))
	require.True(t, n.Matches("system"))
	require.False(t, n.Matches("golang"))
}

func TestHasTag_ExactOnly(t *testing.T) {
	n := Note{Tags: []string{"ai", "rust"}}

	require.True(t, n.HasTag("ai"))
	require.False(t, n.HasTag("AI"))
	require.False(t, n.HasTag("ru"))
}

func TestDistinctTagsAndCount(t *testing.T) {
	notes := []Note{
		sample("a", "2025-01-01", KindNote, "go", "ai"),
		sample("b", "2025-01-02", KindThought, "ai"),
		sample("c", "2025-01-03", KindThought),
	}

	require.Equal(t, []string{"ai", "go"}, DistinctTags(notes))
	require.Equal(t, Stats{Total: 3, Thoughts: 2, Notes: 1, Tags: 2}, Count(notes))
	require.Equal(t, Stats{}, Count(nil))
}

func TestNormalizeTags(t *testing.T) {
	require.Equal(t, []string{"b", "a", "c"}, NormalizeTags([]string{" b", "a", "", "b", "c ", "a"}))
	require.Equal(t, []string{}, NormalizeTags(nil))
}

func TestPatchApply(t *testing.T) {
	n := sample("a", "2025-01-01", KindNote, "x")
	n.Body = "long body"
	kind := KindThought
	tags := []string{"y"}

	out := Patch{Type: &kind, Content: strPtr("new"), Tags: &tags}.Apply(n)

	require.Equal(t, KindThought, out.Type)
	require.Equal(t, "new", out.Content)
	require.Equal(t, "new", out.Body)
	require.Equal(t, []string{"y"}, out.Tags)
	require.Equal(t, n.Title, out.Title)
	require.Equal(t, n.Date, out.Date)
	// Original is untouched.
	require.Equal(t, "long body", n.Body)
}

func TestValidateNew(t *testing.T) {
	valid := sample("a", "2024-05-01", KindNote)
	require.NoError(t, ValidateNew(&valid))

	tests := []struct {
		name   string
		mutate func(*Note)
	}{
		{"bad type", func(n *Note) { n.Type = "essay" }},
		{"missing title", func(n *Note) { n.Title = " " }},
		{"missing content", func(n *Note) { n.Content = "" }},
		{"missing date", func(n *Note) { n.Date = "" }},
		{"comma in tag", func(n *Note) { n.Tags = []string{"a,b"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := sample("a", "2024-05-01", KindNote)
			tt.mutate(&n)
			err := ValidateNew(&n)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "err = %v", err)
		})
	}
}

func TestValidatePatch(t *testing.T) {
	require.True(t, errors.Is(ValidatePatch(Patch{}), errors.ErrInvalidRequest))
	require.True(t, errors.Is(ValidatePatch(Patch{Title: strPtr("")}), errors.ErrInvalidRequest))
	bad := Kind("essay")
	require.True(t, errors.Is(ValidatePatch(Patch{Type: &bad}), errors.ErrInvalidRequest))
	require.NoError(t, ValidatePatch(Patch{Mood: strPtr("")}))
}

func TestValidateID(t *testing.T) {
	require.NoError(t, ValidateID("1700000000000"))
	require.NoError(t, ValidateID("my-first-note"))

	require.NoError(t, ValidateID("tags-2024"))

	for _, id := range []string{"", "../etc/passwd", "a/b", `a\b`, ".hidden", "a\nb", "tags", "stats", "new"} {
		require.True(t, errors.Is(ValidateID(id), errors.ErrInvalidRequest), "id %q", id)
	}
}
