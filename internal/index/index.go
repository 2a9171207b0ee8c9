// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package index maintains the persistent DICOM catalog: it scans directories
// for readable DICOM files, extracts their header attributes and upserts them
// into the store keyed by absolute path. A content hash and the file size
// detect files that changed between scans; prune drops rows whose files
// vanished.
package index // import "github.com/bnrobert/gobro/internal/index"

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/dicom"
	"github.com/bnrobert/gobro/internal/fsutil"
	"github.com/bnrobert/gobro/internal/model"
)

// Result aggregates one directory scan.
type Result struct {
	Total   int
	Indexed int
	Failed  int
	Errors  []error
}

type scanned struct {
	path string
	rec  model.DicomFile
	err  error
}

// Scan walks dir recursively, reads the header of every file and upserts the
// readable DICOM files into store. Files that are not DICOM or cannot be
// read are counted, not fatal. Parsing and hashing run on workers goroutines
// (default NumCPU); database writes stay on the calling goroutine.
func Scan(ctx context.Context, store db.Store, dir string, workers int, progress func(done, total int, path string, err error)) (*Result, error) {
	if !fsutil.CheckDir(dir) {
		return nil, fmt.Errorf("unsupported directory: %s", dir)
	}
	files, err := fsutil.ListFiles(dir, true, nil)
	if err != nil {
		return nil, err
	}
	res := &Result{Total: len(files)}
	if len(files) == 0 {
		return res, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make(chan scanned, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range files {
		p := path // capture
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out <- scanned{path: p, err: err}
				return nil
			}
			rec, err := readFile(p)
			out <- scanned{path: p, rec: rec, err: err}
			return nil
		})
	}
	go func() {
		_ = g.Wait() // workers report per-file errors through out
		close(out)
	}()

	done := 0
	for s := range out {
		done++
		switch {
		case s.err == nil:
			if _, err := store.UpsertDicomFile(s.rec); err != nil {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Errorf("%s: %w", s.path, err))
			} else {
				res.Indexed++
			}
		case errors.Is(s.err, context.Canceled) || errors.Is(s.err, context.DeadlineExceeded):
			res.Failed++
		default:
			res.Failed++
			res.Errors = append(res.Errors, s.err)
		}
		if progress != nil {
			progress(done, res.Total, s.path, s.err)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// Prune removes catalog rows whose files no longer exist on disk and returns
// how many were dropped.
func Prune(store db.Store) (int, error) {
	files, err := store.GetAllDicomFiles()
	if err != nil {
		return 0, err
	}
	var stale []int
	for _, f := range files {
		if _, err := os.Stat(f.Path); err != nil {
			stale = append(stale, f.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	return store.DeleteDicomFiles(stale)
}

func readFile(path string) (model.DicomFile, error) {
	f, err := dicom.OpenHeader(path)
	if err != nil {
		return model.DicomFile{}, err
	}
	info := f.Info()
	size, hash, err := hashFile(path)
	if err != nil {
		return model.DicomFile{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return model.DicomFile{
		Path:        path,
		SizeBytes:   size,
		ContentHash: hash,

		ImageType:            info.ImageType,
		InstanceCreationDate: info.InstanceCreationDate,
		StudyDate:            info.StudyDate,
		SeriesDate:           info.SeriesDate,
		AcquisitionDate:      info.AcquisitionDate,
		ContentDate:          info.ContentDate,
		AccessionNumber:      info.AccessionNumber,
		Modality:             info.Modality,
		StationName:          info.StationName,
		PatientName:          info.PatientName,
		PatientID:            info.PatientID,
		PatientBirthDate:     info.PatientBirthDate,
		SeriesInstanceUID:    info.SeriesInstanceUID,
		StudyID:              info.StudyID,
		InstanceNumber:       info.InstanceNumber,

		IndexedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func hashFile(path string) (int64, string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = fh.Close() }()

	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	n, err := io.Copy(h, fh)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
