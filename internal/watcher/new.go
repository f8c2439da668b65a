package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
)

// Options tunes the inbox watcher.
type Options struct {
	// MaxConcurrent bounds handlers running at once. Defaults to 2.
	MaxConcurrent int
	// SettleInterval is how often a new file's size is polled until it
	// stops growing. Defaults to 500ms.
	SettleInterval time.Duration
}

// New creates a Watcher on inputDir
func New(inputDir string, handler EventHandler, log logger.Logger, opts Options) (Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(inputDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = 500 * time.Millisecond
	}

	return &implWatcher{
		inputDir:  inputDir,
		handler:   handler,
		logger:    log,
		watcher:   watcher,
		opts:      opts,
		semaphore: make(chan struct{}, opts.MaxConcurrent),
		pending:   make(map[string]bool),
	}, nil
}
