package core

// loader.go orchestrates a load:
//
//  1. Resolve the source (explicit path, or newest *.csv/*.xlsx/*.xls by mtime)
//  2. Fingerprint the file
//  3. If caching, return the cached generation when its hash matches
//  4. Otherwise read, normalize, filter and validate
//  5. If caching, persist the result as the new generation
//
// The hot tier (go-cache, keyed by fingerprint) only ever answers after the
// on-disk sidecar has confirmed the hash, so it never outlives an invalidation
// performed by another process.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/JonMunkholm/gradebook/internal/logging"
	"github.com/patrickmn/go-cache"
)

// Load paths reported to the Observer.
const (
	PathHot   = "hot"
	PathCache = "cache"
	PathCold  = "cold"
)

// Observer receives load pipeline events.
type Observer interface {
	LoadObserved(path string, d time.Duration, rows int)
	RowsDropped(n int)
	ValidationFailed()
}

type nopObserver struct{}

func (nopObserver) LoadObserved(string, time.Duration, int) {}
func (nopObserver) RowsDropped(int)                         {}
func (nopObserver) ValidationFailed()                       {}

// LoaderConfig locates the source and cache directories.
type LoaderConfig struct {
	SourceDir string
	CacheDir  string

	// Filter overrides DefaultFilterOptions when set.
	Filter *FilterOptions
}

// LoaderOption configures optional Loader collaborators.
type LoaderOption func(*Loader)

// WithHotCache enables an in-process table memo in front of the file cache.
func WithHotCache(c *cache.Cache) LoaderOption {
	return func(l *Loader) { l.hot = c }
}

// WithObserver reports pipeline events to o.
func WithObserver(o Observer) LoaderOption {
	return func(l *Loader) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithClock overrides the time source used for cache timestamps and the
// date plausibility window.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
		l.store.now = now
		l.filter.Now = now
	}
}

// Loader loads grade tables with content-hash caching.
// It is safe for concurrent use; concurrent cold loads of the same file
// do redundant work and the last cache write wins.
type Loader struct {
	cfg       LoaderConfig
	filter    FilterOptions
	filterErr error
	reader    *Reader
	store     *CacheStore
	hot       *cache.Cache
	observer  Observer
	now       func() time.Time

	mu       sync.Mutex
	lastHash string
}

// NewLoader creates a Loader. A nil Filter uses DefaultFilterOptions; an
// override whose grade bounds do not form a range makes every load fail
// with ErrGradeRange.
func NewLoader(cfg LoaderConfig, opts ...LoaderOption) *Loader {
	filter := DefaultFilterOptions()
	if cfg.Filter != nil {
		filter = *cfg.Filter
	}
	if filter.Now == nil {
		filter.Now = time.Now
	}

	l := &Loader{
		cfg:       cfg,
		filter:    filter,
		filterErr: filter.Validate(),
		reader:    NewReader(),
		store:     NewCacheStore(cfg.CacheDir),
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the underlying cache store.
func (l *Loader) Store() *CacheStore {
	return l.store
}

// SourceDir returns the configured source directory.
func (l *Loader) SourceDir() string {
	return l.cfg.SourceDir
}

// LastProcessedHash returns the fingerprint of the last table served from or
// written to the cache by this Loader.
func (l *Loader) LastProcessedHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHash
}

func (l *Loader) setLastHash(h string) {
	l.mu.Lock()
	l.lastHash = h
	l.mu.Unlock()
}

// ResolveSource returns the most recently modified supported file in the
// source directory.
func (l *Loader) ResolveSource() (string, error) {
	entries, err := os.ReadDir(l.cfg.SourceDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: directory %s does not exist", ErrNotFound, l.cfg.SourceDir)
		}
		return "", fmt.Errorf("list source dir: %w", err)
	}

	var (
		newest  string
		newestT time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest = filepath.Join(l.cfg.SourceDir, e.Name())
			newestT = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: no data files in %s", ErrNotFound, l.cfg.SourceDir)
	}
	return newest, nil
}

// Load returns the cleaned table for sourcePath, or for the newest source
// file when sourcePath is empty.
func (l *Loader) Load(ctx context.Context, sourcePath string, useCache bool) (*Table, error) {
	if l.filterErr != nil {
		return nil, l.filterErr
	}
	start := l.now()
	logger := logging.FromContext(ctx)

	path := sourcePath
	if path == "" {
		resolved, err := l.ResolveSource()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	if !IsSupportedFile(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	hash, size, err := FingerprintFile(path)
	if err != nil {
		return nil, err
	}
	logger = logger.With("source", path, "file_hash", shortHash(hash))

	if useCache {
		if t, via, ok := l.fromCache(ctx, hash); ok {
			l.setLastHash(hash)
			l.observer.LoadObserved(via, l.now().Sub(start), t.Len())
			logger.Info("loaded from cache", "via", via, "rows", t.Len())
			return t.Clone(), nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("loading from source", "bytes", size)
	frame, result, err := l.Prepare(ctx, path)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		l.observer.ValidationFailed()
		logger.Error("source failed validation", "violations", result.Violations)
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), result.Err())
	}
	table := frame.Table()

	if useCache {
		if _, err := l.store.Write(table, hash); err != nil {
			logger.Error("cache write failed", "error", err)
		} else if l.hot != nil {
			l.hot.Set(hash, table.Clone(), cache.DefaultExpiration)
		}
		l.setLastHash(hash)
	}

	l.observer.LoadObserved(PathCold, l.now().Sub(start), table.Len())
	logger.Info("loaded from source", "rows", table.Len())
	return table, nil
}

// fromCache returns the cached table when the sidecar hash matches.
func (l *Loader) fromCache(ctx context.Context, hash string) (*Table, string, bool) {
	logger := logging.FromContext(ctx)

	entry, err := l.store.Read()
	if err != nil {
		logger.Warn("cache unreadable, treating as miss", "error", err)
		return nil, "", false
	}
	if entry == nil || entry.FileHash != hash || !l.store.TableExists(entry) {
		return nil, "", false
	}

	if l.hot != nil {
		if v, found := l.hot.Get(hash); found {
			if t, ok := v.(*Table); ok {
				return t, PathHot, true
			}
		}
	}

	t, err := l.store.ReadTable(entry)
	if err != nil {
		logger.Warn("cached table unreadable, treating as miss", "error", err)
		return nil, "", false
	}
	if l.hot != nil {
		l.hot.Set(hash, t.Clone(), cache.DefaultExpiration)
	}
	return t, PathCache, true
}

// Prepare reads, normalizes, filters and validates path without touching
// the cache. The returned Frame is the cleaned frame the result refers to.
func (l *Loader) Prepare(ctx context.Context, path string) (*Frame, ValidationResult, error) {
	if l.filterErr != nil {
		return nil, ValidationResult{}, l.filterErr
	}
	raw, err := l.reader.ReadFile(ctx, path)
	if err != nil {
		return nil, ValidationResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ValidationResult{}, err
	}

	cleaned := FilterErrors(ctx, Normalize(ctx, raw), l.filter)
	if dropped := raw.Len() - cleaned.Len(); dropped > 0 {
		l.observer.RowsDropped(dropped)
	}
	return cleaned, ValidateStructure(cleaned), nil
}

// Invalidate deletes the cache generation so the next load recomputes.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.hot != nil {
		l.hot.Flush()
	}
	l.setLastHash("")
	if err := l.store.Invalidate(); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	logging.FromContext(ctx).Info("cache invalidated", "dir", l.store.Dir())
	return nil
}

// FindNewGrades returns the records of current that are absent from the
// cached generation. When previousHash is empty the cached hash is used.
// Everything is new when there is no previous generation or when it is not
// the one this Loader last processed.
func (l *Loader) FindNewGrades(ctx context.Context, current *Table, previousHash string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	entry, err := l.store.Read()
	if err != nil {
		logger.Warn("cache unreadable, all grades are new", "error", err)
		return current.Clone(), nil
	}
	if previousHash == "" && entry != nil {
		previousHash = entry.FileHash
	}
	if previousHash == "" || previousHash != l.LastProcessedHash() {
		logger.Info("no previous generation, all grades are new")
		return current.Clone(), nil
	}
	if entry == nil || !l.store.TableExists(entry) {
		return current.Clone(), nil
	}

	previous, err := l.store.ReadTable(entry)
	if err != nil {
		logger.Error("failed to read previous generation", "error", err)
		return current.Clone(), nil
	}

	seen := make(map[GradeKey]struct{}, previous.Len())
	for _, r := range previous.Records {
		seen[r.Key()] = struct{}{}
	}

	fresh := &Table{Columns: append([]string(nil), current.Columns...)}
	for _, r := range current.Records {
		if _, ok := seen[r.Key()]; !ok {
			fresh.Records = append(fresh.Records, r)
		}
	}
	logger.Info("found new grades", "new", fresh.Len(), "total", current.Len())
	return fresh, nil
}

// Status describes the currently loadable data.
type Status struct {
	HasData      bool      `json:"has_data"`
	TotalRecords int       `json:"total_records"`
	Source       string    `json:"source,omitempty"`
	FileHash     string    `json:"file_hash,omitempty"`
	CachedAt     time.Time `json:"cached_at,omitempty"`
}

// Status loads the newest source through the cache and reports what it found.
// A missing source is reported as HasData=false, not an error.
func (l *Loader) Status(ctx context.Context) (Status, error) {
	source, err := l.ResolveSource()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Status{}, nil
		}
		return Status{}, err
	}

	t, err := l.Load(ctx, source, true)
	if err != nil {
		return Status{Source: filepath.Base(source)}, err
	}

	st := Status{
		HasData:      !t.Empty(),
		TotalRecords: t.Len(),
		Source:       filepath.Base(source),
		FileHash:     l.LastProcessedHash(),
	}
	if entry, err := l.store.Read(); err == nil && entry != nil {
		st.CachedAt = entry.Timestamp
	}
	return st, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
