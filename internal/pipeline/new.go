package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/acquisition"
	"github.com/nguyentantai21042004/article-flow/internal/chunker"
	"github.com/nguyentantai21042004/article-flow/internal/completion"
	"github.com/nguyentantai21042004/article-flow/internal/config"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"github.com/nguyentantai21042004/article-flow/internal/prompt"
	"github.com/nguyentantai21042004/article-flow/internal/transcriber"
	"github.com/panjf2000/ants/v2"
)

// MaxAttempts bounds completion attempts per chunk.
const MaxAttempts = 2

// Options tunes a pipeline. Zero values fall back to the smallest sane setting.
type Options struct {
	TempRoot         string
	MaxConcurrent    int
	ChunkUnit        chunker.Unit
	MaxChunkUnits    int
	ChunkConcurrency int
	MaxAttempts      int
	RetryBackoff     time.Duration
	StreamDelay      time.Duration
}

// OptionsFromConfig maps the validated configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	unit, err := chunker.ParseUnit(cfg.Pipeline.ChunkUnit)
	if err != nil {
		return Options{}, err
	}
	return Options{
		TempRoot:         cfg.Paths.Temp,
		MaxConcurrent:    cfg.Performance.MaxConcurrent,
		ChunkUnit:        unit,
		MaxChunkUnits:    cfg.Pipeline.MaxChunkUnits,
		ChunkConcurrency: cfg.Pipeline.ChunkConcurrency,
		MaxAttempts:      cfg.Pipeline.MaxAttempts,
		RetryBackoff:     cfg.Pipeline.RetryBackoff,
		StreamDelay:      cfg.Pipeline.StreamDelay,
	}, nil
}

// Dependencies are the collaborators shared read-only by every run.
type Dependencies struct {
	Acquirer    acquisition.Acquirer
	Transcriber transcriber.Transcriber
	Invoker     completion.Invoker
	// Pool runs chunk completions. It may be shared with other users.
	Pool *ants.Pool
}

type implPipeline struct {
	opts      Options
	acquirer  acquisition.Acquirer
	transcr   transcriber.Transcriber
	invoker   completion.Invoker
	pool      *ants.Pool
	template  string
	admission *limiter
	logger    logger.Logger
}

// New creates a Pipeline. The template is checked once here so rendering
// cannot fail on a configuration defect in the middle of a run.
func New(opts Options, deps Dependencies, template string, log logger.Logger) (Pipeline, error) {
	if deps.Acquirer == nil || deps.Transcriber == nil || deps.Invoker == nil {
		return nil, errors.New("pipeline: acquirer, transcriber and invoker are required")
	}
	if deps.Pool == nil {
		return nil, errors.New("pipeline: worker pool is required")
	}
	if err := prompt.Validate(template); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if opts.TempRoot == "" {
		return nil, errors.New("pipeline: temp root is required")
	}
	if opts.MaxChunkUnits <= 0 {
		return nil, fmt.Errorf("pipeline: %w", chunker.ErrInvalidBudget)
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.MaxAttempts < 0 || opts.MaxAttempts > MaxAttempts {
		return nil, fmt.Errorf("pipeline: max attempts must be between 1 and %d", MaxAttempts)
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.ChunkConcurrency < 1 {
		opts.ChunkConcurrency = 1
	}

	return &implPipeline{
		opts:      opts,
		acquirer:  deps.Acquirer,
		transcr:   deps.Transcriber,
		invoker:   deps.Invoker,
		pool:      deps.Pool,
		template:  template,
		admission: newLimiter(opts.MaxConcurrent),
		logger:    log,
	}, nil
}
