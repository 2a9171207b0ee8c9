// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package dicom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bnrobert/gobro/internal/fsutil"
)

// BatchOptions tunes a directory anonymization run.
type BatchOptions struct {
	Workers  int    // concurrent workers, default runtime.NumCPU()
	Station  string // replacement StationName, default uppercased local hostname
	OutDir   string // output root, default <dir>/anonymized
	Progress func(done, total int, path string, err error)
}

// BatchResult aggregates one directory run.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []error
}

type batchItem struct {
	path string
	err  error
}

// AnonymizeDir anonymizes every DICOM file under dir into the output root,
// mirroring the PID/accession/series layout. Previously anonymized outputs
// are skipped, files that fail to parse or anonymize are counted and
// reported but do not stop the run. Cancelling ctx drains the pool early.
func AnonymizeDir(ctx context.Context, dir string, opts BatchOptions) (*BatchResult, error) {
	if !fsutil.CheckDir(dir) {
		return nil, fmt.Errorf("unsupported directory: %s", dir)
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Join(dir, "anonymized")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, err
	}

	all, err := fsutil.ListFiles(dir, true, nil)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range all {
		if strings.Contains(p, "anonymized") {
			continue
		}
		if p == absOut || strings.HasPrefix(p, absOut+string(filepath.Separator)) {
			continue
		}
		files = append(files, p)
	}

	res := &BatchResult{Total: len(files)}
	if len(files) == 0 {
		return res, nil
	}

	station := opts.Station
	if station == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve station name: %w", err)
		}
		station = strings.ToUpper(host)
	}
	if err := fsutil.EnsureDir(outDir); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sem := make(chan struct{}, workers)
	results := make(chan batchItem, len(files))
	var wg sync.WaitGroup

	for _, path := range files {
		p := path // capture
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results <- batchItem{path: p, err: err}
				return
			}
			_, err := AnonymizeFile(p, outDir, station)
			results <- batchItem{path: p, err: err}
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		if r.err == nil {
			res.Succeeded++
		} else {
			res.Failed++
			if !errors.Is(r.err, context.Canceled) && !errors.Is(r.err, context.DeadlineExceeded) {
				res.Errors = append(res.Errors, r.err)
			}
		}
		if opts.Progress != nil {
			opts.Progress(done, res.Total, r.path, r.err)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
