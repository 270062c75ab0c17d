package exchange

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

// ReadFile decodes the document at path; the extension selects the format.
func ReadFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return nil, fmt.Errorf("spreadsheets are export-only, import a .json or .yaml file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteFile encodes doc to path; the extension selects the format.
func WriteFile(path string, doc *Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if format == FormatXLSX {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteWorkbook(doc, f); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	data, err := Encode(doc, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FileReport is the outcome of importing one file.
type FileReport struct {
	Path   string
	Report Report
}

// ImportFiles imports every file matching pattern (doublestar syntax, e.g.
// "backups/**/*.json") in lexical order. It stops at the first failure.
func ImportFiles(ctx context.Context, repo storage.Repository, sid session.ID, pattern string) ([]FileReport, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(matches)

	reports := make([]FileReport, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		doc, err := ReadFile(path)
		if err != nil {
			return reports, err
		}
		report, err := Import(ctx, repo, sid, doc)
		reports = append(reports, FileReport{Path: path, Report: report})
		if err != nil {
			return reports, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reports, nil
}
