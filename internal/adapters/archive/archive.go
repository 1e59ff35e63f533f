// Package archive decodes uploaded zip archives into CSV tables.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/okian/focusengine/internal/domain/ingest"
)

// Sentinel kinds for archive errors.
var (
	ErrInvalidArchive = errors.New("invalid zip archive")
	ErrTooLarge       = errors.New("archive entry too large")
)

// DefaultMaxEntrySize bounds the uncompressed size of a single CSV entry.
const DefaultMaxEntrySize = 64 << 20

// Decode reads every .csv entry of a zip archive, in name order. Directories,
// non-CSV entries and macOS resource forks are ignored. A CSV entry that
// cannot be parsed is returned with no header so the loader reports it as
// an empty file.
func Decode(data []byte) ([]ingest.File, error) {
	return DecodeLimit(data, DefaultMaxEntrySize)
}

// DecodeLimit is Decode with an explicit per-entry size limit.
func DecodeLimit(data []byte, maxEntrySize int64) ([]ingest.File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isCSV(f.Name) {
			continue
		}
		entries = append(entries, f)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	files := make([]ingest.File, 0, len(entries))
	for _, f := range entries {
		file, err := readEntry(f, maxEntrySize)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func isCSV(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._") {
		return false
	}
	return strings.EqualFold(path.Ext(name), ".csv")
}

func readEntry(f *zip.File, maxEntrySize int64) (ingest.File, error) {
	rc, err := f.Open()
	if err != nil {
		return ingest.File{}, fmt.Errorf("%w: open %s: %v", ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return ingest.File{}, fmt.Errorf("%w: read %s: %v", ErrInvalidArchive, f.Name, err)
	}
	if int64(len(raw)) > maxEntrySize {
		return ingest.File{}, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	return Parse(f.Name, raw), nil
}

// Parse splits CSV bytes into a header and rows. Ragged rows are allowed.
func Parse(name string, raw []byte) ingest.File {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return ingest.File{Name: name}
	}

	rows := records[1:]
	out := rows[:0]
	for _, row := range rows {
		if !blank(row) {
			out = append(out, row)
		}
	}
	return ingest.File{Name: name, Header: records[0], Rows: out}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
