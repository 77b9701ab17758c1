package content

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/note"
)

// backends returns one repository per backend, both starting empty.
func backends(t *testing.T) map[Mode]*Repository {
	t.Helper()
	ctx := context.Background()

	file, err := New(ctx, Options{ContentDir: t.TempDir()})
	require.NoError(t, err)

	rel, err := New(ctx, Options{DatabaseURL: filepath.Join(t.TempDir(), "folio.db")})
	require.NoError(t, err)
	t.Cleanup(func() { rel.Close() })

	return map[Mode]*Repository{ModeFile: file, ModeDatabase: rel}
}

func newNote(title, content, date string, kind note.Kind, tags ...string) note.Note {
	return note.Note{Type: kind, Title: title, Content: content, Date: date, Tags: tags, Locale: "zh"}
}

func ids(notes []note.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.ID)
	}
	return out
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	file, err := New(ctx, Options{ContentDir: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, ModeFile, file.Mode())

	rel, err := New(ctx, Options{DatabaseURL: "sqlite:" + filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	defer rel.Close()
	require.Equal(t, ModeDatabase, rel.Mode())

	_, err = New(ctx, Options{DatabaseURL: "nonsense"})
	require.Error(t, err)
}

func TestScenario_CreateGetDelete(t *testing.T) {
	for mode, repo := range backends(t) {
		t.Run(string(mode), func(t *testing.T) {
			ctx := context.Background()
			in := note.Note{
				ID: "1700000000000", Type: note.KindNote, Title: "Test", Content: "Body text",
				Tags: []string{"x", "y"}, Date: "2024-05-01", Locale: "zh",
			}

			created, err := repo.Create(ctx, in)
			require.NoError(t, err)

			got, err := repo.Get(ctx, "1700000000000", "zh")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, *created, *got)
			require.Equal(t, in.Title, got.Title)
			require.Equal(t, in.Content, got.Content)
			require.Equal(t, in.Tags, got.Tags)
			require.Equal(t, in.Date, got.Date)
			require.Equal(t, in.Type, got.Type)

			body, ok, err := repo.GetContentBody(ctx, "1700000000000", "zh")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "Body text", body)

			require.NoError(t, repo.Delete(ctx, "1700000000000", "zh"))

			got, err = repo.Get(ctx, "1700000000000", "zh")
			require.NoError(t, err)
			require.Nil(t, got)

			_, ok, err = repo.GetContentBody(ctx, "1700000000000", "zh")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestScenario_ByTag(t *testing.T) {
	for mode, repo := range backends(t) {
		t.Run(string(mode), func(t *testing.T) {
			ctx := context.Background()
			for i, n := range []note.Note{
				newNote("A", "a", "2024-01-01", note.KindNote, "ai", "rust"),
				newNote("B", "b", "2024-01-02", note.KindThought, "life"),
				newNote("C", "c", "2024-01-03", note.KindNote, "ai"),
			} {
				n.ID = string(rune('a' + i))
				_, err := repo.Create(ctx, n)
				require.NoError(t, err)
			}

			got, err := repo.ByTag(ctx, "ai", "zh")
			require.NoError(t, err)
			require.Equal(t, []string{"c", "a"}, ids(got))
			for _, n := range got {
				require.Contains(t, n.Tags, "ai")
			}
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	ctx := context.Background()
	repos := backends(t)

	seed := []note.Note{
		newNote("Learning Rust", "ownership", "2024-03-01", note.KindNote, "rust", "Systems"),
		newNote("Coffee", "morning thoughts about RUST", "2024-03-02", note.KindThought),
		newNote("Paper", "attention", "2024-02-01", note.KindNote, "ai"),
		newNote("Über Rust", "Ärger", "2024-01-15", note.KindNote, "Ωmega"),
	}
	for _, repo := range repos {
		for i, n := range seed {
			n.ID = string(rune('1' + i))
			_, err := repo.Create(ctx, n)
			require.NoError(t, err)
		}
		en := newNote("English only", "rust", "2025-01-01", note.KindNote)
		en.ID = "9"
		en.Locale = "en-US"
		_, err := repo.Create(ctx, en)
		require.NoError(t, err)
	}

	file, rel := repos[ModeFile], repos[ModeDatabase]
	for _, q := range []Query{{}, {Type: "note"}, {Tag: "rust"}, {Q: "rust"}, {Q: "system"}, {Q: "zzz"},
		{Q: "über"}, {Q: "ärger"}, {Q: "ωMEGA"}, {Tag: "Ωmega"}} {
		a, err := file.Query(ctx, q, "zh")
		require.NoError(t, err)
		b, err := rel.Query(ctx, q, "zh")
		require.NoError(t, err)
		require.Equal(t, ids(a), ids(b), "query %+v", q)
		if q.Q == "über" || q.Q == "ωMEGA" {
			require.Equal(t, []string{"4"}, ids(b), "query %+v", q)
		}
	}

	fs, err := file.Statistics(ctx, "zh")
	require.NoError(t, err)
	rs, err := rel.Statistics(ctx, "zh")
	require.NoError(t, err)
	require.Equal(t, fs, rs)
	require.Equal(t, note.Stats{Total: 4, Thoughts: 1, Notes: 3, Tags: 4}, fs)

	ft, err := file.Tags(ctx, "zh")
	require.NoError(t, err)
	rt, err := rel.Tags(ctx, "zh")
	require.NoError(t, err)
	require.Equal(t, ft, rt)
}

func TestQuery_Priority(t *testing.T) {
	fb := &fakeBackend{}
	repo := NewWithBackend(fb, ModeFile, false, nil)
	ctx := context.Background()

	_, err := repo.Query(ctx, Query{Type: "note", Tag: "x", Q: "y"}, "zh")
	require.NoError(t, err)
	_, err = repo.Query(ctx, Query{Tag: "x", Q: "y"}, "zh")
	require.NoError(t, err)
	_, err = repo.Query(ctx, Query{Q: "y"}, "zh")
	require.NoError(t, err)
	_, err = repo.Query(ctx, Query{}, "zh")
	require.NoError(t, err)

	require.Equal(t, []string{"ByType", "ByTag", "Search", "List"}, fb.calls)
}

func TestRoutingIsFixed(t *testing.T) {
	fb := &fakeBackend{}
	repo := NewWithBackend(fb, ModeDatabase, false, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.List(ctx, "zh")
		require.NoError(t, err)
		_, err = repo.Tags(ctx, "en-US")
		require.NoError(t, err)
	}
	require.Len(t, fb.calls, 6)
	require.Equal(t, ModeDatabase, repo.Mode())
}

func TestValidation(t *testing.T) {
	fb := &fakeBackend{}
	repo := NewWithBackend(fb, ModeFile, false, nil)
	ctx := context.Background()

	_, err := repo.List(ctx, "")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = repo.List(ctx, "fr")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = repo.ByType(ctx, "essay", "zh")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = repo.Get(ctx, "../x", "zh")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = repo.Create(ctx, note.Note{Type: note.KindNote, Title: "T", Date: "2024-01-01", Locale: "zh"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = repo.Update(ctx, "1", "zh", note.Patch{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	require.Empty(t, fb.calls, "invalid calls must not reach the backend")
}

func TestCreate_GeneratesIDAndNormalizesTags(t *testing.T) {
	fb := &fakeBackend{}
	repo := NewWithBackend(fb, ModeFile, false, nil)
	repo.now = func() time.Time { return time.UnixMilli(1700000000123) }

	n, err := repo.Create(context.Background(), newNote(" T ", "C", "2024-01-01", note.KindNote, " b", "a", "", "b"))
	require.NoError(t, err)
	require.Equal(t, "1700000000123", n.ID)
	require.Equal(t, "T", n.Title)
	require.Equal(t, []string{"b", "a"}, n.Tags)
}

func TestUpdate_NormalizesTags(t *testing.T) {
	fb := &fakeBackend{}
	repo := NewWithBackend(fb, ModeFile, false, nil)

	tags := []string{"x", " x ", "y"}
	_, err := repo.Update(context.Background(), "1", "zh", note.Patch{Tags: &tags})
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, *fb.lastPatch.Tags)
}

func TestUpdate_TrimsLikeCreate(t *testing.T) {
	for mode, repo := range backends(t) {
		t.Run(string(mode), func(t *testing.T) {
			ctx := context.Background()
			n := newNote("  Padded  ", "C", " 2024-01-01 ", note.KindNote)
			n.ID = "trim"
			created, err := repo.Create(ctx, n)
			require.NoError(t, err)

			title, date := "  Padded  ", " 2024-01-01 "
			updated, err := repo.Update(ctx, "trim", "zh", note.Patch{Title: &title, Date: &date})
			require.NoError(t, err)
			require.Equal(t, created.Title, updated.Title)
			require.Equal(t, created.Date, updated.Date)
			require.Equal(t, "Padded", updated.Title)
			require.Equal(t, "2024-01-01", updated.Date)

			blank := "   "
			_, err = repo.Update(ctx, "trim", "zh", note.Patch{Title: &blank})
			require.True(t, errors.Is(err, errors.ErrInvalidRequest))
		})
	}
}

func TestCreate_ReservedID(t *testing.T) {
	repo := backends(t)[ModeFile]
	n := newNote("T", "C", "2024-01-01", note.KindNote)
	n.ID = "stats"
	_, err := repo.Create(context.Background(), n)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestReadOnly(t *testing.T) {
	fb := &fakeBackend{}
	repo := NewWithBackend(fb, ModeFile, true, nil)
	ctx := context.Background()
	title := "x"

	_, err := repo.Create(ctx, newNote("T", "C", "2024-01-01", note.KindNote))
	require.True(t, errors.Is(err, errors.ErrCapabilityUnavailable))
	_, err = repo.Update(ctx, "1", "zh", note.Patch{Title: &title})
	require.True(t, errors.Is(err, errors.ErrCapabilityUnavailable))
	err = repo.Delete(ctx, "1", "zh")
	require.True(t, errors.Is(err, errors.ErrCapabilityUnavailable))
	require.Equal(t, 501, errors.As(err).Status)

	// Reads still work.
	_, err = repo.List(ctx, "zh")
	require.NoError(t, err)
}

func TestFileBackend_SupportsWrites(t *testing.T) {
	repo := backends(t)[ModeFile]
	ctx := context.Background()

	n := newNote("T", "C", "2024-01-01", note.KindNote)
	n.ID = "w1"
	_, err := repo.Create(ctx, n)
	require.NoError(t, err)

	title := "T2"
	updated, err := repo.Update(ctx, "w1", "zh", note.Patch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "T2", updated.Title)

	_, err = repo.Update(ctx, "missing", "zh", note.Patch{Title: &title})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

// fakeBackend records which operation the repository routed to.
type fakeBackend struct {
	calls     []string
	lastPatch note.Patch
}

func (f *fakeBackend) List(ctx context.Context, locale string) ([]note.Note, error) {
	f.calls = append(f.calls, "List")
	return []note.Note{}, nil
}

func (f *fakeBackend) Get(ctx context.Context, id, locale string) (*note.Note, error) {
	f.calls = append(f.calls, "Get")
	return nil, nil
}

func (f *fakeBackend) ByType(ctx context.Context, kind note.Kind, locale string) ([]note.Note, error) {
	f.calls = append(f.calls, "ByType")
	return []note.Note{}, nil
}

func (f *fakeBackend) ByTag(ctx context.Context, tag, locale string) ([]note.Note, error) {
	f.calls = append(f.calls, "ByTag")
	return []note.Note{}, nil
}

func (f *fakeBackend) Search(ctx context.Context, query, locale string) ([]note.Note, error) {
	f.calls = append(f.calls, "Search")
	return []note.Note{}, nil
}

func (f *fakeBackend) Tags(ctx context.Context, locale string) ([]string, error) {
	f.calls = append(f.calls, "Tags")
	return []string{}, nil
}

func (f *fakeBackend) Statistics(ctx context.Context, locale string) (note.Stats, error) {
	f.calls = append(f.calls, "Statistics")
	return note.Stats{}, nil
}

func (f *fakeBackend) Create(ctx context.Context, n note.Note) (*note.Note, error) {
	f.calls = append(f.calls, "Create")
	return &n, nil
}

func (f *fakeBackend) Update(ctx context.Context, id, locale string, p note.Patch) (*note.Note, error) {
	f.calls = append(f.calls, "Update")
	f.lastPatch = p
	return &note.Note{ID: id, Locale: locale}, nil
}

func (f *fakeBackend) Delete(ctx context.Context, id, locale string) error {
	f.calls = append(f.calls, "Delete")
	return nil
}
