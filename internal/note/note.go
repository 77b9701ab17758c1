package note

// Kind is the note type: a short thought or a sourced reading note.
type Kind string

const (
	KindThought Kind = "thought"
	KindNote    Kind = "note"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindThought || k == KindNote
}

// Note is one user-authored note or thought, scoped to a locale.
type Note struct {
	// ID is unique within a locale. For files it is the filename stem.
	ID string `json:"id"`

	Type    Kind     `json:"type"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`

	// Date is a lexically sortable date string (e.g. "2025-06-01").
	Date   string `json:"date"`
	Locale string `json:"locale"`

	// Mood is meaningful for thoughts.
	Mood string `json:"mood,omitempty"`

	// Source and SourceURL are meaningful for notes.
	Source    string `json:"source,omitempty"`
	SourceURL string `json:"sourceUrl,omitempty"`

	// Body is the long-form text after the file header. It equals Content
	// for notes stored in the database or written by Folio.
	Body string `json:"-"`
}

// Complete reports whether the record carries every required field.
// Incomplete records are dropped from listings.
func (n *Note) Complete() bool {
	return n.Title != "" && n.Content != "" && n.Date != "" && n.Type != ""
}

// Text returns the long-form body, falling back to Content.
func (n *Note) Text() string {
	if n.Body != "" {
		return n.Body
	}
	return n.Content
}

// Patch holds the fields of an update. Nil means "keep the current value".
type Patch struct {
	Type      *Kind     `json:"type,omitempty"`
	Title     *string   `json:"title,omitempty"`
	Content   *string   `json:"content,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	Date      *string   `json:"date,omitempty"`
	Mood      *string   `json:"mood,omitempty"`
	Source    *string   `json:"source,omitempty"`
	SourceURL *string   `json:"sourceUrl,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Type == nil && p.Title == nil && p.Content == nil && p.Tags == nil &&
		p.Date == nil && p.Mood == nil && p.Source == nil && p.SourceURL == nil
}

// Apply returns a copy of n with the patch fields set.
// A new Content also replaces Body, since the two are written together.
func (p Patch) Apply(n Note) Note {
	if p.Type != nil {
		n.Type = *p.Type
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
		n.Body = *p.Content
	}
	if p.Tags != nil {
		n.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Date != nil {
		n.Date = *p.Date
	}
	if p.Mood != nil {
		n.Mood = *p.Mood
	}
	if p.Source != nil {
		n.Source = *p.Source
	}
	if p.SourceURL != nil {
		n.SourceURL = *p.SourceURL
	}
	return n
}

// Stats are aggregate counts for one locale.
type Stats struct {
	Total    int `json:"total"`
	Thoughts int `json:"thoughts"`
	Notes    int `json:"notes"`
	Tags     int `json:"tags"`
}
