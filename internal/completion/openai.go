package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type openAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a Client backed by the chat completions API.
// baseURL may point at any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, baseURL string) Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" && baseURL != "https://api.openai.com/v1" {
		clientConfig.BaseURL = baseURL
	}

	return &openAIClient{client: openai.NewClientWithConfig(clientConfig)}
}

func (o *openAIClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classifyOpenAI(err)
	}

	if len(resp.Choices) == 0 {
		return "", &TransientError{Err: fmt.Errorf("openai response has no choices")}
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonContentFilter {
		return "", &FatalError{Err: fmt.Errorf("openai response blocked by content filter")}
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	return &TransientError{Err: err}
}
