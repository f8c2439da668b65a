package watcher

import "context"

// Watcher feeds audio files dropped into the inbox directory to a handler.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler processes one inbox file. It owns the file from then on.
type EventHandler func(ctx context.Context, filePath string) error
