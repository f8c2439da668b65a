package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/chunker"
	"github.com/nguyentantai21042004/article-flow/internal/completion"
	"github.com/nguyentantai21042004/article-flow/internal/prompt"
)

// summarize completes every chunk on the worker pool, at most
// ChunkConcurrency at a time, and returns the articles indexed by chunk
// position. The first failure stops the remaining chunks.
func (p *implPipeline) summarize(ctx context.Context, r *run, chunks []chunker.Chunk) ([]completion.Article, error) {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	articles := make([]completion.Article, len(chunks))
	inFlight := newLimiter(p.opts.ChunkConcurrency)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed *SummarizationError
	)
	fail := func(index int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if failed == nil {
			failed = &SummarizationError{Chunk: index, Chunks: len(chunks), Err: err}
			cancel()
		}
	}

	for _, c := range chunks {
		if err := inFlight.acquire(workCtx); err != nil {
			break
		}
		if workCtx.Err() != nil {
			inFlight.release()
			break
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			defer inFlight.release()
			defer func() {
				if rec := recover(); rec != nil {
					fail(c.Index, fmt.Errorf("chunk worker panic: %v", rec))
				}
			}()

			article, err := p.summarizeChunk(workCtx, r, c)
			if err != nil {
				fail(c.Index, err)
				return
			}
			articles[c.Index] = article
			r.notify(Event{Type: EventChunk, Chunk: c.Index, Chunks: len(chunks)})
		})
		if err != nil {
			wg.Done()
			inFlight.release()
			fail(c.Index, fmt.Errorf("submit to worker pool: %w", err))
			break
		}
	}
	wg.Wait()

	// A parent cancellation outranks the chunk errors it caused.
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{State: r.state, Err: err}
	}
	if failed != nil {
		return nil, failed
	}
	return articles, nil
}

// summarizeChunk renders and completes one chunk, retrying transient
// failures up to MaxAttempts in total.
func (p *implPipeline) summarizeChunk(ctx context.Context, r *run, c chunker.Chunk) (completion.Article, error) {
	doc, err := prompt.Render(p.template, c)
	if err != nil {
		return completion.Article{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		article, err := p.invoker.Complete(ctx, doc)
		if err == nil {
			p.logger.Info(ctx, "Run %s: chunk %d summarized (attempt %d)", r.id, c.Index+1, attempt)
			return article, nil
		}
		lastErr = err

		if !completion.IsTransient(err) || attempt == p.opts.MaxAttempts {
			break
		}
		p.logger.Warn(ctx, "Run %s: chunk %d attempt %d/%d failed, retrying in %s: %v",
			r.id, c.Index+1, attempt, p.opts.MaxAttempts, p.opts.RetryBackoff, err)
		if err := wait(ctx, p.opts.RetryBackoff); err != nil {
			return completion.Article{}, lastErr
		}
	}
	return completion.Article{}, lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
