// Package reporter delivers a transcript word by word for live-typing display.
//
// Every emission carries the whole text accumulated so far, so a consumer can
// simply redraw with the latest value.
package reporter

import (
	"context"
	"strings"
	"time"
)

// EmitFunc receives the accumulated transcript after each word.
type EmitFunc func(partial string)

// Options controls pacing and cancellation of a stream.
type Options struct {
	// Delay is the pause between two emissions. It never changes the output.
	Delay time.Duration
	// Cancelled is polled before each emission. Returning true ends the stream.
	Cancelled func() bool
}

// Stream emits the words of transcript in order and returns how many were
// delivered. A stream that is cancelled, through opts.Cancelled or ctx, stops
// quietly; a partial transcript is a normal outcome, not an error.
func Stream(ctx context.Context, transcript string, emit EmitFunc, opts Options) int {
	words := strings.Fields(transcript)

	var timer *time.Timer
	if opts.Delay > 0 {
		timer = time.NewTimer(opts.Delay)
		defer timer.Stop()
	}

	var acc strings.Builder
	for i, w := range words {
		if i > 0 && timer != nil {
			timer.Reset(opts.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				return i
			}
		}

		if ctx.Err() != nil || (opts.Cancelled != nil && opts.Cancelled()) {
			return i
		}

		if i > 0 {
			acc.WriteByte(' ')
		}
		acc.WriteString(w)
		emit(acc.String())
	}

	return len(words)
}
