package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/article-flow/internal/pipeline"
)

// Write stores the article and transcript of res under the output directory
func (w *implWriter) Write(ctx context.Context, name string, res *pipeline.Result) (Files, error) {
	if res == nil {
		return Files{}, errors.New("nothing to write")
	}
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}

	base := filepath.Join(w.outputDir, name)
	files := Files{
		Markdown:   base + ".md",
		Article:    base + ".docx",
		Transcript: base + "_transcript.docx",
	}

	md := fmt.Sprintf("# %s\n\n_%s_\n\n%s\n",
		name,
		w.now().Format("2006-01-02 15:04"),
		strings.TrimSpace(res.Article),
	)
	if err := os.WriteFile(files.Markdown, []byte(md), 0644); err != nil {
		return Files{}, fmt.Errorf("write markdown: %w", err)
	}
	w.logger.Info(ctx, "Saved article: %s", files.Markdown)

	if err := articleDocx(name, res.Article, files.Article); err != nil {
		return Files{}, fmt.Errorf("write article docx: %w", err)
	}
	w.logger.Info(ctx, "Saved article docx: %s", files.Article)

	if err := transcriptDocx(name+" (transcript)", res.Transcript, files.Transcript); err != nil {
		return Files{}, fmt.Errorf("write transcript docx: %w", err)
	}
	w.logger.Info(ctx, "Saved transcript docx: %s", files.Transcript)

	return files, nil
}

// Archive moves a processed source into the archive directory. An existing
// file of the same name is kept and the new one gets a numeric suffix.
func (w *implWriter) Archive(ctx context.Context, srcPath string) (string, error) {
	if err := os.MkdirAll(w.archivedDir, 0755); err != nil {
		return "", fmt.Errorf("create archived dir: %w", err)
	}

	destPath := freePath(filepath.Join(w.archivedDir, filepath.Base(srcPath)))
	w.logger.Info(ctx, "Moving to archived folder: %s -> %s", srcPath, destPath)

	if err := os.Rename(srcPath, destPath); err != nil {
		return "", fmt.Errorf("move to archived: %w", err)
	}
	return destPath, nil
}

func freePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
