package report

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/infostats/internal/model"
	"golang.org/x/crypto/sha3"
)

// ErrEmptyArchiveDir is returned when no archive directory is configured.
var ErrEmptyArchiveDir = errors.New("archive directory is not set")

// ArchiveFileName returns the archive file name for a window,
// e.g. "data-2014-06-30.json". The name uses the end date.
func ArchiveFileName(w model.Window) string {
	return "data-" + w.EndDate() + ".json"
}

// EncodeRows encodes rows as an indented JSON array. Object keys are
// sorted and HTML characters are not escaped.
func EncodeRows(rows []*model.OutputRow) ([]byte, error) {
	if rows == nil {
		rows = []*model.OutputRow{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns the hex SHA3-256 digest of data.
func Digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ArchiveWriter stores run rows as JSON files in a directory.
type ArchiveWriter struct {
	dir string
}

// NewArchiveWriter creates an ArchiveWriter for dir.
func NewArchiveWriter(dir string) *ArchiveWriter {
	return &ArchiveWriter{dir: dir}
}

// Dir returns the archive directory.
func (a *ArchiveWriter) Dir() string {
	return a.dir
}

// Write stores rows in the file for window, replacing an earlier archive
// of the same window. It returns the file path and the digest of the
// written bytes.
func (a *ArchiveWriter) Write(rows []*model.OutputRow, window model.Window) (string, string, error) {
	if a.dir == "" {
		return "", "", ErrEmptyArchiveDir
	}
	data, err := EncodeRows(rows)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode rows: %w", err)
	}
	if err := os.MkdirAll(a.dir, 0o750); err != nil {
		return "", "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := filepath.Join(a.dir, ArchiveFileName(window))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", "", fmt.Errorf("failed to write archive: %w", err)
	}
	return path, Digest(data), nil
}

// ReadArchive loads the rows of an archive file.
func ReadArchive(path string) ([]*model.OutputRow, error) {
	data, err := os.ReadFile(path) //nolint:gosec // archive path is chosen by the operator
	if err != nil {
		return nil, err
	}
	var rows []*model.OutputRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode archive %s: %w", path, err)
	}
	return rows, nil
}
