package transcriber

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/article-flow/internal/audio"
	"github.com/sashabaranov/go-openai"
)

func (o *openAIWhisper) Transcribe(ctx context.Context, res *audio.Resource) (string, error) {
	o.logger.Info(ctx, "Sending %s audio to %s (%d bytes)", res.Format, o.model, res.Size)

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: res.Path,
		Language: o.language,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errNoSpeech
	}
	return text, nil
}
