package core

// cache.go persists the single live cache generation.
//
// The store holds one key, "current": a JSON sidecar describing the cached
// table and the table itself as CSV. Both are written atomically with renameio,
// table first, so the sidecar never points at a partial table.

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
)

const (
	// CacheSidecarName is the metadata file inside the cache directory.
	CacheSidecarName = "data_cache.json"
	// CacheTableName is the cached table inside the cache directory.
	CacheTableName = "cached_data.csv"

	cacheVersion = 1
	cacheKey     = "current"
)

// CacheDateRange is the diagnostic date span of a cached table.
type CacheDateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// CacheMetadata describes a cached table. It is informational only.
type CacheMetadata struct {
	Rows      int             `json:"rows"`
	Columns   []string        `json:"columns"`
	DateRange *CacheDateRange `json:"date_range"`
}

// CacheEntry is the sidecar document.
type CacheEntry struct {
	Version   int           `json:"version"`
	Key       string        `json:"key"`
	FileHash  string        `json:"file_hash"`
	Timestamp time.Time     `json:"timestamp"`
	Metadata  CacheMetadata `json:"metadata"`
	DataPath  string        `json:"data_path"`
}

// MetadataFor summarises a table for the sidecar.
func MetadataFor(t *Table) CacheMetadata {
	md := CacheMetadata{
		Rows:    t.Len(),
		Columns: append([]string(nil), t.Columns...),
	}
	if min, max, ok := t.DateRange(); ok {
		md.DateRange = &CacheDateRange{Min: min.String(), Max: max.String()}
	}
	return md
}

// CacheStore reads and writes the cache generation in a directory.
type CacheStore struct {
	dir string
	now func() time.Time
}

// NewCacheStore returns a store rooted at dir. The directory is created on
// first write.
func NewCacheStore(dir string) *CacheStore {
	return &CacheStore{dir: dir, now: time.Now}
}

// Dir returns the cache directory.
func (s *CacheStore) Dir() string {
	return s.dir
}

func (s *CacheStore) sidecarPath() string { return filepath.Join(s.dir, CacheSidecarName) }
func (s *CacheStore) tablePath() string   { return filepath.Join(s.dir, CacheTableName) }

// Read returns the current entry. It returns (nil, nil) when no entry exists
// and an error wrapping ErrCacheRead when the sidecar is corrupt or fails the
// version/key guard.
func (s *CacheStore) Read() (*CacheEntry, error) {
	data, err := os.ReadFile(s.sidecarPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheRead, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: decode sidecar: %v", ErrCacheRead, err)
	}
	if entry.Version != cacheVersion || entry.Key != cacheKey {
		return nil, fmt.Errorf("%w: unexpected sidecar version %d key %q", ErrCacheRead, entry.Version, entry.Key)
	}
	if entry.FileHash == "" || entry.DataPath == "" {
		return nil, fmt.Errorf("%w: incomplete sidecar", ErrCacheRead)
	}
	return &entry, nil
}

// TableExists reports whether the table referenced by entry is on disk.
func (s *CacheStore) TableExists(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	info, err := os.Stat(entry.DataPath)
	return err == nil && info.Mode().IsRegular()
}

// Write persists t as the new generation tagged with hash, replacing any
// prior entry.
func (s *CacheStore) Write(t *Table, hash string) (*CacheEntry, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	if err := WriteFileAtomic(s.tablePath(), func(w io.Writer) error {
		return writeTableCSV(w, t)
	}); err != nil {
		return nil, fmt.Errorf("write cached table: %w", err)
	}

	entry := &CacheEntry{
		Version:   cacheVersion,
		Key:       cacheKey,
		FileHash:  hash,
		Timestamp: s.now().UTC(),
		Metadata:  MetadataFor(t),
		DataPath:  s.tablePath(),
	}
	if err := WriteFileAtomic(s.sidecarPath(), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}); err != nil {
		return nil, fmt.Errorf("write cache sidecar: %w", err)
	}
	return entry, nil
}

// ReadTable loads the table referenced by entry.
func (s *CacheStore) ReadTable(entry *CacheEntry) (*Table, error) {
	f, err := os.Open(entry.DataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open cached table: %v", ErrCacheRead, err)
	}
	defer f.Close()

	t, err := readTableCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheRead, err)
	}
	return t, nil
}

// Invalidate deletes the current generation. Missing files are ignored.
func (s *CacheStore) Invalidate() error {
	var errs []error
	for _, p := range []string{s.sidecarPath(), s.tablePath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteFileAtomic writes path through a renameio pending file in the same
// directory. Readers see either the old content or the complete new one.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if err := write(pf); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}

// RecordFields renders a record in column order; absent optionals are "".
func RecordFields(r GradeRecord, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case ColStudentID:
			out[i] = strconv.FormatInt(r.StudentID, 10)
		case ColStudentName:
			out[i] = r.StudentName
		case ColSubject:
			out[i] = r.Subject
		case ColGrade:
			out[i] = FormatNumber(r.Grade)
		case ColDate:
			out[i] = r.Date.String()
		case ColTeacher:
			out[i] = r.Teacher.String
		case ColAssignment:
			out[i] = r.Assignment.String
		case ColNotes:
			out[i] = r.Notes.String
		}
	}
	return out
}

func writeTableCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, r := range t.Records {
		if err := cw.Write(RecordFields(r, t.Columns)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readTableCSV(r io.Reader) (*Table, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse cached table: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("cached table has no header")
	}

	t := &Table{Columns: rows[0], Records: make([]GradeRecord, 0, len(rows)-1)}
	for n, row := range rows[1:] {
		var rec GradeRecord
		for i, col := range t.Columns {
			if i >= len(row) {
				break
			}
			v := row[i]
			switch col {
			case ColStudentID:
				id, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d: student_id %q: %w", n+1, v, err)
				}
				rec.StudentID = id
			case ColStudentName:
				rec.StudentName = v
			case ColSubject:
				rec.Subject = v
			case ColGrade:
				g, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d: grade %q: %w", n+1, v, err)
				}
				rec.Grade = g
			case ColDate:
				d, err := time.Parse(DateLayout, v)
				if err != nil {
					return nil, fmt.Errorf("row %d: date %q: %w", n+1, v, err)
				}
				rec.Date = Date{d}
			case ColTeacher:
				rec.Teacher = ToPgText(v)
			case ColAssignment:
				rec.Assignment = ToPgText(v)
			case ColNotes:
				rec.Notes = ToPgText(v)
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}
