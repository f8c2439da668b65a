package output

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/article-flow/internal/acquisition"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"github.com/nguyentantai21042004/article-flow/internal/pipeline"
)

// InboxHandler returns the handler for a file dropped into the inbox: run
// the pipeline on it, write the results, then archive the original. A file
// whose run fails stays in the inbox.
func InboxHandler(pipe pipeline.Pipeline, w Writer, log logger.Logger) func(ctx context.Context, path string) error {
	return func(ctx context.Context, path string) error {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		res, err := pipe.Run(ctx, pipeline.Job{
			Source: acquisition.Request{Path: path, Filename: filepath.Base(path)},
		})
		if err != nil {
			return fmt.Errorf("run %s: %w", name, err)
		}

		files, err := w.Write(ctx, name, res)
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}

		if _, err := w.Archive(ctx, path); err != nil {
			log.Warn(ctx, "Failed to move original to archived folder: %v", err)
		}

		log.Info(ctx, "========================================")
		log.Info(ctx, "Article ready: %s", files.Markdown)
		log.Info(ctx, "Transcript: %s", files.Transcript)
		log.Info(ctx, "Processing time: %s", res.Duration)
		log.Info(ctx, "========================================")
		return nil
	}
}
