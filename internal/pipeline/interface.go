package pipeline

import (
	"context"
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/acquisition"
	"github.com/nguyentantai21042004/article-flow/internal/completion"
)

// Pipeline turns one audio source into a transcript and an article.
type Pipeline interface {
	// Run drives a job through every stage. It returns either the full
	// result or a single terminal error: *AcquisitionError,
	// *TranscriptionError, *SummarizationError or *CancelledError.
	Run(ctx context.Context, job Job) (*Result, error)
}

// Job is one request for an article.
type Job struct {
	Source acquisition.Request

	// Observer receives progress events. Optional.
	Observer Observer

	// StopStream is polled before each transcript emission. Stopping the
	// stream only ends the live display; the run continues.
	StopStream func() bool
}

// Result is what a completed run hands to the caller. Nothing of it is
// retained by the pipeline.
type Result struct {
	RunID      string
	Transcript string
	// Article is the per-chunk articles joined in chunk order.
	Article  string
	Articles []completion.Article
	// Streamed counts the transcript words delivered to the observer.
	Streamed int
	Duration time.Duration
}

type EventType string

const (
	EventState      EventType = "state"
	EventTranscript EventType = "transcript"
	EventChunk      EventType = "chunk"
)

// Event reports progress of a run. Events of one run are delivered
// sequentially, never concurrently.
type Event struct {
	RunID string
	Type  EventType
	State State
	// Text is the accumulated transcript for EventTranscript.
	Text string
	// Chunk is the index of the chunk just summarized, out of Chunks.
	Chunk  int
	Chunks int
}

type Observer func(Event)
