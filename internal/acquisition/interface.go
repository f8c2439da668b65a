package acquisition

import (
	"context"
	"io"

	"github.com/nguyentantai21042004/article-flow/internal/audio"
)

// Acquirer materialises the audio of a request inside a run workspace.
// The resource stays valid until the workspace is released.
type Acquirer interface {
	Acquire(ctx context.Context, req Request, ws *audio.Workspace) (*audio.Resource, error)
}

// Request describes where the audio comes from. Exactly one of Body, Path
// and URL should be set.
type Request struct {
	// Filename is the declared name of an upload or dropped file; its
	// extension is the format tag.
	Filename string
	// Body holds uploaded bytes.
	Body io.Reader
	// Path is a local file, e.g. one dropped into the inbox.
	Path string
	// URL is a remote video page to pull the best audio stream from.
	URL string
}

// Describe gives a short label for logs.
func (r Request) Describe() string {
	switch {
	case r.URL != "":
		return r.URL
	case r.Path != "":
		return r.Path
	case r.Filename != "":
		return "upload " + r.Filename
	default:
		return "empty request"
	}
}
