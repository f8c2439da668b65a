// Package prompt renders the article instruction template for one transcript chunk.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/nguyentantai21042004/article-flow/internal/chunker"
)

// Placeholder marks where the transcript chunk goes in a template.
const Placeholder = "{transcript}"

// DefaultVersion identifies the embedded template.
const DefaultVersion = "seo-article/v1"

//go:embed templates/seo_article_v1.txt
var defaultTemplate string

// TemplateError reports a template that does not carry exactly one placeholder.
type TemplateError struct {
	Placeholders int
}

func (e *TemplateError) Error() string {
	if e.Placeholders == 0 {
		return fmt.Sprintf("template has no %s placeholder", Placeholder)
	}
	return fmt.Sprintf("template has %d %s placeholders, want exactly one", e.Placeholders, Placeholder)
}

// Document is the rendered prompt for a single chunk.
type Document struct {
	ChunkIndex int
	Text       string
}

// Default returns the embedded SEO article template.
func Default() string {
	return strings.TrimRight(defaultTemplate, "\n")
}

// Load returns the template stored at path, or the default template when
// path is empty. The template is validated before it is returned.
func Load(path string) (string, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}

	tpl := strings.TrimRight(string(data), "\n")
	if err := Validate(tpl); err != nil {
		return "", fmt.Errorf("template %s: %w", path, err)
	}
	return tpl, nil
}

// Validate returns a *TemplateError unless the template has exactly one placeholder.
func Validate(template string) error {
	if n := strings.Count(template, Placeholder); n != 1 {
		return &TemplateError{Placeholders: n}
	}
	return nil
}

// Render substitutes the chunk text into the template placeholder. Nothing
// else in the template is touched.
func Render(template string, c chunker.Chunk) (Document, error) {
	if err := Validate(template); err != nil {
		return Document{}, err
	}

	return Document{
		ChunkIndex: c.Index,
		Text:       strings.Replace(template, Placeholder, c.Text, 1),
	}, nil
}
