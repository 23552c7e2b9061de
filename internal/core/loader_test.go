package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/smartystreets/goconvey/convey"
)

const cleanCSV = `student_id,student_name,subject,grade,date
2,boris ivanov,Physics,3.0,2024-02-01
1,anna petrova,Math,4.5,2024-01-15
1,Anna Petrova,Physics,5.0,2024-03-10
`

type recordingObserver struct {
	mu      sync.Mutex
	paths   []string
	dropped int
	failed  int
}

func (o *recordingObserver) LoadObserved(path string, _ time.Duration, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, path)
}

func (o *recordingObserver) RowsDropped(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped += n
}

func (o *recordingObserver) ValidationFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

// tickingClock advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestLoader(t *testing.T, opts ...LoaderOption) (*Loader, string, string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "raw")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	cacheDir := filepath.Join(root, "processed")
	opts = append([]LoaderOption{WithClock(tickingClock())}, opts...)
	return NewLoader(LoaderConfig{SourceDir: src, CacheDir: cacheDir}, opts...), src, cacheDir
}

func TestLoaderLoad(t *testing.T) {
	convey.Convey("Given a source directory with a clean CSV", t, func() {
		obs := &recordingObserver{}
		loader, src, cacheDir := newTestLoader(t, WithObserver(obs))
		path := writeFile(t, src, "grades.csv", []byte(cleanCSV))
		ctx := context.Background()

		convey.Convey("When it is loaded with caching", func() {
			table, err := loader.Load(ctx, "", true)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then all three rows come back sorted by date", func() {
				convey.So(table.Len(), convey.ShouldEqual, 3)
				convey.So(table.Records[0].Date.String(), convey.ShouldEqual, "2024-01-15")
				convey.So(table.Records[1].Date.String(), convey.ShouldEqual, "2024-02-01")
				convey.So(table.Records[2].Date.String(), convey.ShouldEqual, "2024-03-10")
				convey.So(table.Columns, convey.ShouldResemble, RequiredColumns)
			})

			convey.Convey("Then student names are merged and title-cased", func() {
				convey.So(table.Records[0].StudentName, convey.ShouldEqual, "Anna Petrova")
				convey.So(table.Records[2].StudentName, convey.ShouldEqual, "Anna Petrova")
				convey.So(table.Records[1].StudentName, convey.ShouldEqual, "Boris Ivanov")
			})

			convey.Convey("Then a cache generation is written", func() {
				entry, err := loader.Store().Read()
				convey.So(err, convey.ShouldBeNil)
				convey.So(entry, convey.ShouldNotBeNil)
				convey.So(entry.FileHash, convey.ShouldEqual, loader.LastProcessedHash())
				convey.So(entry.Metadata.Rows, convey.ShouldEqual, 3)
				convey.So(obs.paths, convey.ShouldResemble, []string{PathCold})
			})

			convey.Convey("And it is loaded again unchanged", func() {
				before, _ := loader.Store().Read()
				again, err := loader.Load(ctx, "", true)
				convey.So(err, convey.ShouldBeNil)
				after, _ := loader.Store().Read()

				convey.Convey("Then the table is identical and nothing was reparsed", func() {
					convey.So(again, convey.ShouldResemble, table)
					convey.So(after.Timestamp.Equal(before.Timestamp), convey.ShouldBeTrue)
					convey.So(after.FileHash, convey.ShouldEqual, before.FileHash)
					convey.So(obs.paths, convey.ShouldResemble, []string{PathCold, PathCache})
				})
			})

			convey.Convey("And one byte of the source changes", func() {
				before, _ := loader.Store().Read()
				changed := []byte(cleanCSV)
				changed[len(changed)-2] = '1'
				convey.So(os.WriteFile(path, changed, 0o644), convey.ShouldBeNil)

				_, err := loader.Load(ctx, "", true)
				convey.So(err, convey.ShouldBeNil)
				after, _ := loader.Store().Read()

				convey.Convey("Then the fingerprint changes and the cold path runs", func() {
					convey.So(after.FileHash, convey.ShouldNotEqual, before.FileHash)
					convey.So(after.Timestamp.After(before.Timestamp), convey.ShouldBeTrue)
					convey.So(obs.paths, convey.ShouldResemble, []string{PathCold, PathCold})
				})
			})

			convey.Convey("And the sidecar is corrupted", func() {
				convey.So(os.WriteFile(filepath.Join(cacheDir, CacheSidecarName), []byte("garbage"), 0o644), convey.ShouldBeNil)

				again, err := loader.Load(ctx, "", true)

				convey.Convey("Then the load degrades to the cold path", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(again, convey.ShouldResemble, table)
					convey.So(obs.paths, convey.ShouldResemble, []string{PathCold, PathCold})
				})
			})

			convey.Convey("And the cache is invalidated", func() {
				convey.So(loader.Invalidate(ctx), convey.ShouldBeNil)

				convey.Convey("Then the generation and last hash are gone", func() {
					entry, err := loader.Store().Read()
					convey.So(err, convey.ShouldBeNil)
					convey.So(entry, convey.ShouldBeNil)
					convey.So(loader.LastProcessedHash(), convey.ShouldEqual, "")
				})
			})
		})

		convey.Convey("When it is loaded without caching", func() {
			table, err := loader.Load(ctx, path, false)

			convey.Convey("Then no cache is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(table.Len(), convey.ShouldEqual, 3)
				entry, err := loader.Store().Read()
				convey.So(err, convey.ShouldBeNil)
				convey.So(entry, convey.ShouldBeNil)
				convey.So(loader.LastProcessedHash(), convey.ShouldEqual, "")
			})
		})
	})
}

func TestLoaderHotCache(t *testing.T) {
	convey.Convey("Given a loader with a hot tier", t, func() {
		obs := &recordingObserver{}
		hot := cache.New(time.Minute, time.Minute)
		loader, src, _ := newTestLoader(t, WithObserver(obs), WithHotCache(hot))
		writeFile(t, src, "grades.csv", []byte(cleanCSV))
		ctx := context.Background()

		first, err := loader.Load(ctx, "", true)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When loading again", func() {
			second, err := loader.Load(ctx, "", true)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the hot tier answers with an equal copy", func() {
				convey.So(second, convey.ShouldResemble, first)
				convey.So(obs.paths, convey.ShouldResemble, []string{PathCold, PathHot})
			})

			convey.Convey("Then callers cannot corrupt the memo", func() {
				second.Records[0].Grade = 0
				third, _ := loader.Load(ctx, "", true)
				convey.So(third.Records[0].Grade, convey.ShouldEqual, first.Records[0].Grade)
			})
		})

		convey.Convey("When the cache is invalidated", func() {
			convey.So(loader.Invalidate(ctx), convey.ShouldBeNil)
			_, err := loader.Load(ctx, "", true)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the next load is cold", func() {
				convey.So(hot.ItemCount(), convey.ShouldEqual, 1)
				convey.So(obs.paths, convey.ShouldResemble, []string{PathCold, PathCold})
			})
		})
	})
}

func TestLoaderFailures(t *testing.T) {
	convey.Convey("Given a loader", t, func() {
		obs := &recordingObserver{}
		loader, src, _ := newTestLoader(t, WithObserver(obs))
		ctx := context.Background()

		convey.Convey("When the source directory is empty", func() {
			_, err := loader.Load(ctx, "", true)

			convey.Convey("Then ErrNotFound is returned", func() {
				convey.So(errors.Is(err, ErrNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the source directory does not exist", func() {
			missing := NewLoader(LoaderConfig{SourceDir: filepath.Join(src, "nope"), CacheDir: t.TempDir()})
			_, err := missing.Load(ctx, "", true)

			convey.Convey("Then ErrNotFound is returned", func() {
				convey.So(errors.Is(err, ErrNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the named file has an unsupported extension", func() {
			path := writeFile(t, src, "grades.txt", []byte(cleanCSV))
			_, err := loader.Load(ctx, path, true)

			convey.Convey("Then ErrUnsupportedFormat is returned", func() {
				convey.So(errors.Is(err, ErrUnsupportedFormat), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the source lacks the grade column", func() {
			writeFile(t, src, "grades.csv", []byte("student_id,student_name,subject,date\n1,Anna,Math,2024-01-10\n"))
			_, err := loader.Load(ctx, "", true)

			convey.Convey("Then a ValidationError lists the missing column", func() {
				var ve *ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
				convey.So(ve.Violations, convey.ShouldResemble, []string{"missing required columns: grade"})
				convey.So(errors.Is(err, ErrValidation), convey.ShouldBeTrue)
				convey.So(obs.failed, convey.ShouldEqual, 1)
			})

			convey.Convey("Then the cache is untouched", func() {
				entry, err := loader.Store().Read()
				convey.So(err, convey.ShouldBeNil)
				convey.So(entry, convey.ShouldBeNil)
			})
		})

		convey.Convey("When every row is invalid", func() {
			writeFile(t, src, "grades.csv", []byte("student_id,student_name,subject,grade,date\n-1,Anna,Math,200,2024-01-10\n"))
			_, err := loader.Load(ctx, "", true)

			convey.Convey("Then the table is reported empty", func() {
				var ve *ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
				convey.So(ve.Violations, convey.ShouldResemble, []string{"table is empty"})
				convey.So(obs.dropped, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the grade range override is empty", func() {
			path := writeFile(t, src, "grades.csv", []byte(cleanCSV))
			zero := FilterOptions{}
			bad := NewLoader(LoaderConfig{SourceDir: src, CacheDir: t.TempDir(), Filter: &zero})
			_, err := bad.Load(ctx, path, true)
			_, _, prepErr := bad.Prepare(ctx, path)

			convey.Convey("Then ErrGradeRange is returned instead of falling back to defaults", func() {
				convey.So(errors.Is(err, ErrGradeRange), convey.ShouldBeTrue)
				convey.So(errors.Is(prepErr, ErrGradeRange), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			writeFile(t, src, "grades.csv", []byte(cleanCSV))
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := loader.Load(cancelled, "", false)

			convey.Convey("Then the cancellation is returned", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}

func TestLoaderResolveSource(t *testing.T) {
	convey.Convey("Given several files in the source directory", t, func() {
		loader, src, _ := newTestLoader(t)
		older := writeFile(t, src, "a.csv", []byte(cleanCSV))
		newer := writeFile(t, src, "b.xlsx", []byte("x"))
		writeFile(t, src, "c.txt", []byte("ignored"))

		base := time.Now().Add(-time.Hour)
		convey.So(os.Chtimes(older, base, base), convey.ShouldBeNil)
		convey.So(os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)), convey.ShouldBeNil)

		convey.Convey("Then the most recently modified supported file wins", func() {
			got, err := loader.ResolveSource()
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, newer)
		})

		convey.Convey("When the older file is touched", func() {
			later := base.Add(2 * time.Minute)
			convey.So(os.Chtimes(older, later, later), convey.ShouldBeNil)

			got, err := loader.ResolveSource()
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, older)
		})
	})
}

func TestLoaderFindNewGrades(t *testing.T) {
	convey.Convey("Given a loaded and cached generation", t, func() {
		loader, src, _ := newTestLoader(t)
		path := writeFile(t, src, "grades.csv", []byte(cleanCSV))
		ctx := context.Background()

		_, err := loader.Load(ctx, path, true)
		convey.So(err, convey.ShouldBeNil)
		firstHash := loader.LastProcessedHash()

		convey.So(os.WriteFile(path, []byte(cleanCSV+"2,Boris Ivanov,Math,4.0,2024-04-01\n"), 0o644), convey.ShouldBeNil)
		current, err := loader.Load(ctx, path, false)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When diffing against the cached hash", func() {
			fresh, err := loader.FindNewGrades(ctx, current, "")

			convey.Convey("Then only the added grade is new", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(fresh.Len(), convey.ShouldEqual, 1)
				convey.So(fresh.Records[0].Subject, convey.ShouldEqual, "Math")
				convey.So(fresh.Records[0].StudentID, convey.ShouldEqual, int64(2))
			})
		})

		convey.Convey("When diffing against an explicit matching hash", func() {
			fresh, err := loader.FindNewGrades(ctx, current, firstHash)
			convey.So(err, convey.ShouldBeNil)
			convey.So(fresh.Len(), convey.ShouldEqual, 1)
		})

		convey.Convey("When the previous hash is unknown", func() {
			fresh, err := loader.FindNewGrades(ctx, current, "deadbeef")

			convey.Convey("Then everything is new", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(fresh.Len(), convey.ShouldEqual, current.Len())
			})
		})

		convey.Convey("When there is no cached generation", func() {
			convey.So(loader.Invalidate(ctx), convey.ShouldBeNil)
			fresh, err := loader.FindNewGrades(ctx, current, "")

			convey.Convey("Then everything is new", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(fresh.Len(), convey.ShouldEqual, 4)
			})
		})
	})
}

func TestLoaderStatus(t *testing.T) {
	convey.Convey("Given a loader", t, func() {
		loader, src, _ := newTestLoader(t)
		ctx := context.Background()

		convey.Convey("When there is no data", func() {
			st, err := loader.Status(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(st.HasData, convey.ShouldBeFalse)
		})

		convey.Convey("When a clean file exists", func() {
			writeFile(t, src, "grades.csv", []byte(cleanCSV))
			st, err := loader.Status(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(st.HasData, convey.ShouldBeTrue)
			convey.So(st.TotalRecords, convey.ShouldEqual, 3)
			convey.So(st.Source, convey.ShouldEqual, "grades.csv")
			convey.So(st.FileHash, convey.ShouldNotBeEmpty)
			convey.So(st.CachedAt.IsZero(), convey.ShouldBeFalse)
		})
	})
}
