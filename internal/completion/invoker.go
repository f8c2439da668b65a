package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/prompt"
)

// Complete sends the rendered prompt to the completion service once. Retries
// are the caller's business.
func (i *implInvoker) Complete(ctx context.Context, doc prompt.Document) (Article, error) {
	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	i.logger.Debug(ctx, "Requesting completion for chunk %d (%d chars, model %s)", doc.ChunkIndex, len(doc.Text), i.model)

	text, err := i.client.Generate(callCtx, i.model, doc.Text)
	if err != nil {
		return Article{}, i.classify(ctx, callCtx, err)
	}

	if strings.TrimSpace(text) == "" {
		return Article{}, &TransientError{Err: errEmptyResponse}
	}

	i.logger.Debug(ctx, "Completion for chunk %d done in %s", doc.ChunkIndex, time.Since(start))
	return Article{ChunkIndex: doc.ChunkIndex, Text: text}, nil
}

func (i *implInvoker) classify(parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return &FatalError{Err: parent.Err()}
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return &TransientError{Err: fmt.Errorf("no completion after %s: %w", i.timeout, context.DeadlineExceeded)}
	}
	if isClassified(err) {
		return err
	}
	return &TransientError{Err: err}
}
