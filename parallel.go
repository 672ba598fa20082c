package subflow

import (
	"context"
	"sync"
)

// jobResult is the outcome of one translationJob.
type jobResult struct {
	text string
	err  error
}

// runJobs translates jobs with at most t.concurrency provider calls in
// flight. results[i] always belongs to jobs[i], whatever the completion order.
func (t *Translator) runJobs(ctx context.Context, jobs []translationJob) []jobResult {
	results := make([]jobResult, len(jobs))

	workers := t.concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	if workers == 1 {
		for i, job := range jobs {
			text, err := t.translateOne(ctx, job)
			results[i] = jobResult{text: text, err: err}
		}
		return results
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				text, err := t.translateOne(ctx, jobs[i])
				results[i] = jobResult{text: text, err: err}
			}
		}()
	}

	for i := range jobs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}
