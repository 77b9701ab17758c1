package transfer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/note"
)

// maxLineBytes bounds a single JSONL line.
const maxLineBytes = 4 << 20

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail before writing anything
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // give colliding notes a new id
)

// ImportOutput contains the result of an import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one record that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Locale  string `json:"locale,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type record struct {
	line int
	note note.Note
}

// exportLine decodes either the header or a note.
type exportLine struct {
	FolioExport bool `json:"_folio_export"`
	note.Note
}

// ImportFile imports the JSONL export at path.
func ImportFile(ctx context.Context, repo *content.Repository, path string, mode ImportMode) (*ImportOutput, error) {
	if path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if filepath.Ext(path) != ".jsonl" {
		return nil, errors.NewInvalidRequest("path must have .jsonl extension")
	}
	file, err := openFileNoFollow(path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := err.(*errors.FolioError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	return Import(ctx, repo, file, mode)
}

// Import reads an export from r and writes its notes to repo.
//
// In error mode every record is checked first and nothing is written when
// any record is malformed or already exists. The other modes import what
// they can and report the rest.
func Import(ctx context.Context, repo *content.Repository, r io.Reader, mode ImportMode) (*ImportOutput, error) {
	if mode == "" {
		mode = ImportModeError
	}
	if mode != ImportModeError && mode != ImportModeReplace && mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}
	if repo.ReadOnly() {
		return nil, errors.NewCapabilityUnavailable("import")
	}

	records, parseErrors := parse(r)

	switch mode {
	case ImportModeError:
		if len(parseErrors) > 0 {
			return &ImportOutput{Errors: parseErrors}, nil
		}
		return importModeError(ctx, repo, records)
	case ImportModeReplace:
		return importModeReplace(ctx, repo, records, parseErrors)
	default:
		return importModeRename(ctx, repo, records, parseErrors)
	}
}

// parse reads every line, skipping the header.
func parse(r io.Reader) ([]record, []ImportError) {
	var records []record
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var decoded exportLine
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if decoded.FolioExport {
			continue
		}

		if err := check(&decoded.Note); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      decoded.ID,
				Locale:  decoded.Locale,
				Code:    "INVALID_RECORD",
				Message: errors.As(err).Message,
			})
			continue
		}
		records = append(records, record{line: lineNum, note: decoded.Note})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read input: %v", err),
		})
	}

	return records, parseErrors
}

// check applies the create-time rules to a record so error mode can reject
// it before anything is written.
func check(n *note.Note) error {
	if !i18n.IsSupported(n.Locale) {
		return errors.NewInvalidRequest(fmt.Sprintf("unsupported locale %q", n.Locale))
	}
	if err := note.ValidateID(n.ID); err != nil {
		return err
	}
	candidate := *n
	candidate.Tags = note.NormalizeTags(candidate.Tags)
	return note.ValidateNew(&candidate)
}

func key(n note.Note) string { return n.Locale + "/" + n.ID }

// importModeError imports all records only when none collides.
func importModeError(ctx context.Context, repo *content.Repository, records []record) (*ImportOutput, error) {
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		existing, err := repo.Get(ctx, rec.note.ID, rec.note.Locale)
		if err != nil {
			return nil, err
		}
		if existing != nil || seen[key(rec.note)] {
			return &ImportOutput{Errors: []ImportError{collision(rec)}}, nil
		}
		seen[key(rec.note)] = true
	}

	imported := 0
	for _, rec := range records {
		if _, err := repo.Create(ctx, rec.note); err != nil {
			return nil, err
		}
		imported++
	}
	return &ImportOutput{Imported: imported, Errors: []ImportError{}}, nil
}

// importModeReplace creates new notes and overwrites existing ones.
func importModeReplace(ctx context.Context, repo *content.Repository, records []record, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Errors: append([]ImportError{}, parseErrors...), Skipped: len(parseErrors)}

	for _, rec := range records {
		existing, err := repo.Get(ctx, rec.note.ID, rec.note.Locale)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			_, err = repo.Update(ctx, rec.note.ID, rec.note.Locale, fullPatch(rec.note))
		} else {
			_, err = repo.Create(ctx, rec.note)
		}
		if err != nil {
			out.Errors = append(out.Errors, writeFailed(rec, err))
			out.Skipped++
			continue
		}
		out.Imported++
	}
	return out, nil
}

// importModeRename creates every note, giving colliding ones a fresh ULID.
func importModeRename(ctx context.Context, repo *content.Repository, records []record, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Errors: append([]ImportError{}, parseErrors...), Skipped: len(parseErrors)}

	for _, rec := range records {
		existing, err := repo.Get(ctx, rec.note.ID, rec.note.Locale)
		if err != nil {
			return nil, err
		}
		n := rec.note
		if existing != nil {
			n.ID = ulid.Make().String()
		}
		if _, err := repo.Create(ctx, n); err != nil {
			out.Errors = append(out.Errors, writeFailed(rec, err))
			out.Skipped++
			continue
		}
		out.Imported++
	}
	return out, nil
}

// fullPatch sets every field, so optional fields absent from the record are cleared.
func fullPatch(n note.Note) note.Patch {
	tags := append([]string{}, n.Tags...)
	return note.Patch{
		Type:      &n.Type,
		Title:     &n.Title,
		Content:   &n.Content,
		Tags:      &tags,
		Date:      &n.Date,
		Mood:      &n.Mood,
		Source:    &n.Source,
		SourceURL: &n.SourceURL,
	}
}

func collision(rec record) ImportError {
	return ImportError{
		Line:    rec.line,
		ID:      rec.note.ID,
		Locale:  rec.note.Locale,
		Code:    "ID_COLLISION",
		Message: fmt.Sprintf("note %q already exists in locale %q", rec.note.ID, rec.note.Locale),
	}
}

func writeFailed(rec record, err error) ImportError {
	fErr := errors.As(err)
	return ImportError{
		Line:    rec.line,
		ID:      rec.note.ID,
		Locale:  rec.note.Locale,
		Code:    string(fErr.Code),
		Message: fErr.Message,
	}
}
