package deplink

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/mineclover/dependency-linker-sub002/internal/store"
)

// IngestFilesParallel ingests many files with parallel normalization and
// serial commits. Normalization (address derivation, target resolution)
// is CPU-bound and runs on a worker pool; SQLite writes stay on a single
// goroutine. A file that fails to normalize is skipped and its previous
// data left intact; the remaining files still commit. The returned error
// joins all per-file failures.
//
// Results are tracked by input position, so duplicate file paths are
// allowed: each entry commits in caller order and the last one wins.
func (e *Engine) IngestFilesParallel(ctx context.Context, files []*FileFacts) error {
	if len(files) == 0 {
		return nil
	}

	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}

	batches := make([]*store.BatchedStore, len(files))
	normErrs := make([]error, len(files))
	workCh := make(chan int, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				if err := ctx.Err(); err != nil {
					normErrs[idx] = err
					continue
				}
				batch := store.NewBatchedStore(e.store)
				if err := e.normalizeFacts(files[idx], batch); err != nil {
					normErrs[idx] = err
					continue
				}
				batches[idx] = batch
			}
		}()
	}

	for idx := range files {
		workCh <- idx
	}
	close(workCh)
	wg.Wait()

	// Commit serially, in the caller's file order.
	var errs []error
	for idx, facts := range files {
		if err := normErrs[idx]; err != nil {
			errs = append(errs, fmt.Errorf("ingest %s: %w", facts.FilePath, err))
			continue
		}
		if err := e.store.ReplaceFileData(facts.FilePath, batches[idx]); err != nil {
			errs = append(errs, fmt.Errorf("ingest %s: %w", facts.FilePath, err))
			continue
		}
		e.logger.Debug("ingested file",
			"file", facts.FilePath,
			"declarations", len(facts.Declarations),
			"relations", len(facts.Relations))
	}
	return errors.Join(errs...)
}
