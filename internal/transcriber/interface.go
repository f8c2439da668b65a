package transcriber

import (
	"context"

	"github.com/nguyentantai21042004/article-flow/internal/audio"
)

// Transcriber converts an audio resource into the recognised text.
// Undecodable or silent audio is an error, never an empty transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, res *audio.Resource) (string, error)
}
