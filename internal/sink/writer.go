// Package sink persists generated DDL scripts and diff reports.
package sink

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"schemasync/internal/differ"
)

// ReportHeader is the first line of every report.
var ReportHeader = []string{"", "table", "left_only_cols", "right_only_cols", "left_only_indices", "right_only_indices"}

// Writer writes artifacts to Fs.
type Writer struct {
	Fs afero.Fs
}

// NewOsWriter returns a Writer backed by the real filesystem.
func NewOsWriter() Writer {
	return Writer{Fs: afero.NewOsFs()}
}

// File is one artifact to write.
type File struct {
	Path string
	Data []byte
}

// WriteFiles replaces every file's path with its data. All contents are
// staged in temporary files next to their targets before the first rename,
// so a failed write leaves none of the artifacts behind.
func (w Writer) WriteFiles(files []File) (err error) {
	staged := make([]string, 0, len(files))
	defer func() {
		if err != nil {
			for _, tmp := range staged {
				_ = w.Fs.Remove(tmp)
			}
		}
	}()

	for _, f := range files {
		tmp, err := w.stage(f.Path, f.Data)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err = w.Fs.Rename(staged[i], f.Path); err != nil {
			staged = staged[i:]
			return fmt.Errorf("rename %s: %w", f.Path, err)
		}
	}
	return nil
}

// stage writes data to a temporary file in path's directory and returns its name.
func (w Writer) stage(path string, data []byte) (name string, err error) {
	dir := filepath.Dir(path)
	if err := w.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(w.Fs, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = w.Fs.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err = w.Fs.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	return tmp.Name(), nil
}

// DDLFile renders the statements of one schema as a script artifact.
func DDLFile(path string, stmts []string) File {
	return File{Path: path, Data: []byte(FormatDDL(stmts))}
}

// ReportFile renders rows as a CSV artifact. A report with no rows still has its header.
func ReportFile(path string, rows []differ.Row) (File, error) {
	data, err := FormatReport(rows)
	if err != nil {
		return File{}, err
	}
	return File{Path: path, Data: data}, nil
}

// FormatDDL separates statements with a blank line and ends with one.
func FormatDDL(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n\n") + "\n\n"
}

// FormatReport renders rows as CSV, numbering them from zero.
func FormatReport(rows []differ.Row) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(ReportHeader); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}
	for i, r := range rows {
		rec := []string{
			strconv.Itoa(i),
			r.Table,
			formatList(r.LeftOnlyCols),
			formatList(r.RightOnlyCols),
			formatList(r.LeftOnlyIndices),
			formatList(r.RightOnlyIndices),
		}
		if err := cw.Write(rec); err != nil {
			return nil, fmt.Errorf("write report row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flush report: %w", err)
	}
	return buf.Bytes(), nil
}

// formatList renders names as a bracketed list of quoted strings, e.g. ['a', 'b'].
func formatList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		q := "'"
		if strings.Contains(n, "'") && !strings.Contains(n, `"`) {
			q = `"`
		} else {
			n = strings.ReplaceAll(n, "'", `\'`)
		}
		quoted[i] = q + n + q
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
