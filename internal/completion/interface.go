package completion

import (
	"context"

	"github.com/nguyentantai21042004/article-flow/internal/prompt"
)

// Invoker turns one rendered prompt into one article fragment.
type Invoker interface {
	Complete(ctx context.Context, doc prompt.Document) (Article, error)
}

// Client is the language-model service behind an Invoker. Implementations
// classify their own failures as *TransientError or *FatalError when they can.
type Client interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Article is the completion output for one prompt document.
type Article struct {
	ChunkIndex int
	Text       string
}
