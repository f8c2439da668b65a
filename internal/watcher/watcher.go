package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/article-flow/internal/audio"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
)

type implWatcher struct {
	inputDir  string
	handler   EventHandler
	logger    logger.Logger
	watcher   *fsnotify.Watcher
	opts      Options
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	pending map[string]bool
}

// Start picks up files already waiting in the inbox, then handles new ones
// as they appear, until ctx is cancelled.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "Inbox watcher started (max concurrent: %d). Monitoring: %s", w.opts.MaxConcurrent, w.inputDir)

	if err := w.scanExisting(ctx); err != nil {
		w.logger.Warn(ctx, "Failed to scan inbox: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Waiting for ongoing runs to complete...")
			w.wg.Wait()
			w.logger.Info(ctx, "Inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !isAudioFile(event.Name) {
				w.logger.Debug(ctx, "Ignoring unsupported file: %s", event.Name)
				continue
			}
			w.logger.Info(ctx, "New audio detected: %s", event.Name)
			if err := w.dispatch(ctx, event.Name); err != nil {
				return err
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the file watcher
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *implWatcher) scanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.inputDir)
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && isAudioFile(e.Name()) {
			files = append(files, filepath.Join(w.inputDir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) > 0 {
		w.logger.Info(ctx, "Found %d files waiting in inbox", len(files))
	}
	for _, f := range files {
		if err := w.dispatch(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// dispatch runs the handler for path once a slot is free. A path already
// being handled is skipped.
func (w *implWatcher) dispatch(ctx context.Context, path string) error {
	w.mu.Lock()
	if w.pending[path] {
		w.mu.Unlock()
		return nil
	}
	w.pending[path] = true
	w.mu.Unlock()

	// Blocks if max concurrent reached
	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		w.forget(path)
		return ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()
		defer w.forget(path)

		if err := waitSettled(ctx, path, w.opts.SettleInterval); err != nil {
			w.logger.Warn(ctx, "Skipping %s: %v", path, err)
			return
		}
		if err := w.handler(ctx, path); err != nil {
			w.logger.Error(ctx, "Failed to process %s: %v", path, err)
		}
	}()
	return nil
}

func (w *implWatcher) forget(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
}

// waitSettled returns once the file size is non-zero and unchanged across
// one poll interval.
func waitSettled(ctx context.Context, path string, interval time.Duration) error {
	last := int64(-1)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		size := info.Size()
		if size > 0 && size == last {
			return nil
		}
		last = size

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func isAudioFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return audio.IsSupported(audio.FormatOf(filepath.Ext(path)))
}
