package page

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"pagecms/internal/binder"
	"pagecms/internal/model"
)

// ApplyOptions controls an ApplyDir run.
type ApplyOptions struct {
	// OutDir receives the rewritten pages. If empty, pages are rewritten in
	// place.
	OutDir string

	// Workers caps concurrent page rewrites. If <= 0, GOMAXPROCS is used.
	Workers int

	// Logf receives per-file skip diagnostics. If nil, the standard logger
	// is used.
	Logf func(format string, args ...any)
}

// ApplyStats summarizes an ApplyDir run.
type ApplyStats struct {
	// Files is the number of HTML files processed.
	Files int
	// Applied is the total number of field values bound across all files.
	Applied int
	// Missing is the total number of record fields with no target in a
	// given file. A field present in one page but not another counts once
	// per file it misses.
	Missing int
	// Skipped is the number of files dropped for read or parse errors.
	Skipped int
}

// ApplyDir binds a saved content record into every .html file of dir.
//
// Behavior:
//   - stable ordering by filename for deterministic logs
//   - unreadable/unparseable files are skipped and logged, never fatal
//   - files run concurrently; the first write error cancels the run
//
// Errors:
//   - Returns an error for an unreadable dir, a failed output write, or a
//     canceled context. Per-file read/parse problems only count as skips.
func ApplyDir(ctx context.Context, dir string, record map[string]map[string]string, opts ApplyOptions) (ApplyStats, error) {
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ApplyStats{}, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(e.Name())); ext != ".html" && ext != ".htm" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return ApplyStats{}, fmt.Errorf("create out dir: %w", err)
		}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		mu    sync.Mutex
		stats ApplyStats
	)
	setErr := func(err error) {
		cancel(err)
	}

	nameCh := make(chan string)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for name := range nameCh {
				select {
				case <-ctx.Done():
					continue
				default:
				}

				applied, missing, err := applyFile(dir, name, record, opts.OutDir)
				if err != nil && !isSkip(err) {
					setErr(fmt.Errorf("apply %s: %w", name, err))
					continue
				}

				mu.Lock()
				if err != nil {
					stats.Skipped++
					logf("apply: skip %s: %v", name, err)
				} else {
					stats.Files++
					stats.Applied += applied
					stats.Missing += missing
				}
				mu.Unlock()
			}
		}()
	}

	for _, name := range names {
		select {
		case nameCh <- name:
		case <-ctx.Done():
		}
	}
	close(nameCh)
	wg.Wait()

	return stats, context.Cause(ctx)
}

// skipError marks per-file problems that should not abort the run.
type skipError struct{ err error }

func (e *skipError) Error() string { return e.err.Error() }
func (e *skipError) Unwrap() error { return e.err }

func isSkip(err error) bool {
	_, ok := err.(*skipError)
	return ok
}

func applyFile(dir, name string, record map[string]map[string]string, outDir string) (applied, missing int, err error) {
	full := filepath.Join(dir, name)
	raw, err := os.ReadFile(full)
	if err != nil {
		return 0, 0, &skipError{err}
	}
	src, err := decode(raw, "")
	if err != nil {
		return 0, 0, &skipError{err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return 0, 0, &skipError{err}
	}

	b := binder.New(doc)
	applied, missing = b.ApplyAll(model.FromPersisted(record))

	out, err := b.Render()
	if err != nil {
		return 0, 0, fmt.Errorf("render: %w", err)
	}

	target := full
	if outDir != "" {
		target = filepath.Join(outDir, name)
	}
	if err := os.WriteFile(target, []byte(out), 0o644); err != nil {
		return 0, 0, fmt.Errorf("write: %w", err)
	}
	return applied, missing, nil
}
