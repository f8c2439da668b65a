package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/article-flow/internal/audio"
	"github.com/nguyentantai21042004/article-flow/internal/chunker"
	"github.com/nguyentantai21042004/article-flow/internal/reporter"
)

var (
	errEmptyResource   = errors.New("audio resource is empty")
	errEmptyTranscript = errors.New("no speech in transcript")
)

// Run orchestrates one job from acquisition to the assembled article
func (p *implPipeline) Run(ctx context.Context, job Job) (res *Result, err error) {
	if err := p.admission.acquire(ctx); err != nil {
		return nil, &CancelledError{State: StateIdle, Err: err}
	}
	defer p.admission.release()

	startTime := time.Now()
	r := &run{id: uuid.NewString(), observer: job.Observer}

	p.logger.Info(ctx, "========================================")
	p.logger.Info(ctx, "Run %s: %s", r.id, job.Source.Describe())
	p.logger.Info(ctx, "========================================")

	var ws *audio.Workspace
	defer func() {
		// Also reached while a collaborator panic unwinds, with res unset.
		if err == nil && res == nil {
			err = errors.New("run did not complete")
		}
		p.terminate(ctx, r, ws, err)
		if res != nil {
			res.Duration = time.Since(startTime)
			p.logger.Info(ctx, "Run %s completed in %s: %d chunks, %d words", r.id, res.Duration, len(res.Articles), len(strings.Fields(res.Transcript)))
		}
	}()

	if err := p.advance(ctx, r, StateAcquiringAudio); err != nil {
		return nil, err
	}
	ws, err = audio.NewWorkspace(p.opts.TempRoot)
	if err != nil {
		return nil, &AcquisitionError{Err: err}
	}

	return p.execute(ctx, r, job, ws)
}

func (p *implPipeline) execute(ctx context.Context, r *run, job Job, ws *audio.Workspace) (*Result, error) {
	// Step 1: Acquire audio into the run workspace
	resource, err := p.acquirer.Acquire(ctx, job.Source, ws)
	if err != nil {
		return nil, p.stageError(ctx, r, &AcquisitionError{Err: err})
	}
	if resource == nil || resource.Size <= 0 {
		return nil, &AcquisitionError{Err: errEmptyResource}
	}
	p.logger.Info(ctx, "Run %s: acquired %s audio (%d bytes)", r.id, resource.Format, resource.Size)

	// Step 2: Transcribe
	if err := p.advance(ctx, r, StateTranscribing); err != nil {
		return nil, err
	}
	transcript, err := p.transcr.Transcribe(ctx, resource)
	if err != nil {
		return nil, p.stageError(ctx, r, &TranscriptionError{Err: err})
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, &TranscriptionError{Err: errEmptyTranscript}
	}

	// Step 3: Stream the transcript for display; never gates the run
	if err := p.advance(ctx, r, StateStreaming); err != nil {
		return nil, err
	}
	streamed := reporter.Stream(ctx, transcript, func(partial string) {
		r.notify(Event{Type: EventTranscript, Text: partial})
	}, reporter.Options{Delay: p.opts.StreamDelay, Cancelled: job.StopStream})
	p.logger.Debug(ctx, "Run %s: streamed %d words", r.id, streamed)

	// Step 4: Chunk the full transcript
	if err := p.advance(ctx, r, StateChunking); err != nil {
		return nil, err
	}
	chunks, err := chunker.Split(transcript, chunker.Options{
		MaxUnits: p.opts.MaxChunkUnits,
		Unit:     p.opts.ChunkUnit,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info(ctx, "Run %s: %d chunks of at most %d %s", r.id, len(chunks), p.opts.MaxChunkUnits, p.opts.ChunkUnit)

	// Step 5: Summarize each chunk and reassemble in order
	if err := p.advance(ctx, r, StateSummarizing); err != nil {
		return nil, err
	}
	articles, err := p.summarize(ctx, r, chunks)
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(articles))
	for i, a := range articles {
		parts[i] = strings.TrimSpace(a.Text)
	}

	return &Result{
		RunID:      r.id,
		Transcript: transcript,
		Article:    strings.Join(parts, "\n\n"),
		Articles:   articles,
		Streamed:   streamed,
	}, nil
}

// advance moves r to next at a state boundary, where cancellation is observed.
func (p *implPipeline) advance(ctx context.Context, r *run, next State) error {
	if err := ctx.Err(); err != nil {
		return &CancelledError{State: r.state, Err: err}
	}
	p.logger.Debug(ctx, "Run %s: %s -> %s", r.id, r.state, next)
	r.state = next
	r.notify(Event{Type: EventState, State: next})
	return nil
}

// stageError reports a collaborator failure caused by the caller's
// cancellation as a cancellation.
func (p *implPipeline) stageError(ctx context.Context, r *run, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &CancelledError{State: r.state, Err: ctxErr}
	}
	return err
}

// terminate releases the run workspace and enters the terminal state.
// It runs exactly once per run, on every exit path.
func (p *implPipeline) terminate(ctx context.Context, r *run, ws *audio.Workspace, err error) {
	if ws != nil {
		if relErr := ws.Release(); relErr != nil {
			p.logger.Warn(ctx, "Run %s: failed to release workspace %s: %v", r.id, ws.Dir, relErr)
		} else {
			p.logger.Debug(ctx, "Run %s: released workspace %s", r.id, ws.Dir)
		}
	}

	final := StateCompleted
	if err != nil {
		final = StateAborted
		p.logger.Error(ctx, "Run %s aborted while %s: %v", r.id, r.state, err)
	}
	r.state = final
	r.notify(Event{Type: EventState, State: final})
}
