package output

import (
	"context"

	"github.com/nguyentantai21042004/article-flow/internal/pipeline"
)

// Writer hands a finished run over to the filesystem: the article as
// markdown and docx, the transcript as docx, and the source to the archive.
type Writer interface {
	Write(ctx context.Context, name string, res *pipeline.Result) (Files, error)
	Archive(ctx context.Context, srcPath string) (string, error)
}

// Files lists what Write produced.
type Files struct {
	Markdown   string
	Article    string
	Transcript string
}
