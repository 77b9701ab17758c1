// Package transfer moves notes between backends as JSONL: one header line,
// then one note per line.
package transfer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/folio/internal/content"
	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
)

// SchemaVersion is written in every export header.
const SchemaVersion = "1"

// Header is the first line of an export.
type Header struct {
	FolioExport   bool   `json:"_folio_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	Backend       string `json:"backend"`
}

// ExportOutput contains the result of an export.
type ExportOutput struct {
	Path       string `json:"path,omitempty"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the notes of the given locales to w. No locales means all
// supported locales.
func Export(ctx context.Context, repo *content.Repository, w io.Writer, locales []string) (*ExportOutput, error) {
	if len(locales) == 0 {
		locales = i18n.Supported()
	}
	exportedAt := time.Now().Unix()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Header{
		FolioExport:   true,
		SchemaVersion: SchemaVersion,
		ExportedAt:    exportedAt,
		Backend:       string(repo.Mode()),
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	count := 0
	for _, locale := range locales {
		notes, err := repo.List(ctx, locale)
		if err != nil {
			return nil, err
		}
		for i := range notes {
			if err := ctx.Err(); err != nil {
				return nil, errors.NewInternal(err)
			}
			if err := enc.Encode(notes[i]); err != nil {
				return nil, errors.NewInternal(err)
			}
			count++
		}
	}

	return &ExportOutput{Count: count, ExportedAt: exportedAt}, nil
}

// ExportFile exports to path. The file is written to a temp sibling and
// renamed into place, so an existing export survives a failed run.
func ExportFile(ctx context.Context, repo *content.Repository, path string, locales []string) (*ExportOutput, error) {
	if path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if filepath.Ext(path) != ".jsonl" {
		return nil, errors.NewInvalidRequest("path must have .jsonl extension")
	}
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path must not be a symlink")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	out, err := Export(ctx, repo, file, locales)
	if err != nil {
		return nil, err
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	out.Path = path
	return out, nil
}
