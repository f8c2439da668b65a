// Package audio holds the audio resource handed from acquisition to
// transcription, and the per-run workspace that backs it on disk.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// supportedFormats lists the container/codec tags the transcribers accept.
var supportedFormats = map[string]bool{
	"wav":  true,
	"mp3":  true,
	"mp4":  true,
	"m4a":  true,
	"webm": true,
	"ogg":  true,
	"flac": true,
}

// Resource is a ready-to-transcribe audio file living inside a Workspace.
type Resource struct {
	Path   string
	Format string
	Size   int64
}

// FormatOf returns the normalised format tag for a file name or extension,
// e.g. "talk.MP3" -> "mp3".
func FormatOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = name
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSupported reports whether format is an accepted audio format tag.
func IsSupported(format string) bool {
	return supportedFormats[strings.ToLower(format)]
}

// Workspace is the private temporary directory of one pipeline run.
// Release removes it exactly once, whichever exit path calls it first.
type Workspace struct {
	Dir string

	once       sync.Once
	released   atomic.Bool
	releaseErr error
}

// NewWorkspace creates an isolated directory under root.
func NewWorkspace(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}

	dir, err := os.MkdirTemp(root, "run-*")
	if err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Release deletes the workspace and everything in it. Later calls return
// the result of the first one.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		w.releaseErr = os.RemoveAll(w.Dir)
		w.released.Store(true)
	})
	return w.releaseErr
}

// Released reports whether Release has run.
func (w *Workspace) Released() bool {
	return w.released.Load()
}
