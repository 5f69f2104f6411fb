package matching

import (
	"context"
	"sync"

	"github.com/sara-edu/sara-grading-api/internal/models"
)

const defaultBatchWorkers = 8

type batchResult struct {
	index    int
	proposal Proposal
}

// MatchBatch resolves and matches every file name concurrently using a
// bounded worker pool. Results are merged by a single collector so the
// output order always follows the input order regardless of completion
// order. On cancellation the proposals merged so far are returned along
// with the context error; already-merged entries are never corrupted.
func MatchBatch(ctx context.Context, fileNames []string, roster []models.Student, th Thresholds, workers int) ([]Proposal, error) {
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	if workers > len(fileNames) {
		workers = len(fileNames)
	}
	if len(fileNames) == 0 {
		return nil, nil
	}

	jobs := make(chan int)
	results := make(chan batchResult)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				candidate := Resolve(fileNames[idx])
				select {
				case results <- batchResult{index: idx, proposal: Match(candidate, roster, th)}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for idx := range fileNames {
			select {
			case jobs <- idx:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single-writer merge keyed by input index.
	merged := make(map[int]Proposal, len(fileNames))
	for result := range results {
		merged[result.index] = result.proposal
	}

	proposals := make([]Proposal, 0, len(merged))
	for idx := range fileNames {
		if proposal, ok := merged[idx]; ok {
			proposals = append(proposals, proposal)
		}
	}

	if err := ctx.Err(); err != nil {
		return proposals, err
	}
	return proposals, nil
}
