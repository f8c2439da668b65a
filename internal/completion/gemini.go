package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"google.golang.org/genai"
)

type geminiClient struct {
	apiKeys []string
	baseURL string
	logger  logger.Logger

	mu         sync.Mutex
	currentKey int
	clients    map[int]*genai.Client
}

// NewGeminiClient creates a Client that rotates through the supplied Gemini
// API keys whenever the current one runs out of quota.
func NewGeminiClient(apiKeys []string, log logger.Logger) (Client, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one Gemini API key is required")
	}

	return &geminiClient{
		apiKeys: apiKeys,
		logger:  log,
		clients: make(map[int]*genai.Client),
	}, nil
}

// Generate calls GenerateContent, moving on to the next key whenever the
// current one is rate limited or cannot build a client. Each key is tried at
// most once per call; when all are exhausted the last failure is returned.
func (g *geminiClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	var lastErr error
	for tried := 0; tried < len(g.apiKeys); tried++ {
		idx, client, err := g.client(ctx)
		if err != nil {
			g.logger.Warn(ctx, "Key %d: failed to create client, rotating: %v", idx+1, err)
			g.rotateKey(idx)
			lastErr = &FatalError{Err: fmt.Errorf("create client: %w", err)}
			continue
		}

		result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			if isRateLimited(err) && ctx.Err() == nil {
				g.logger.Warn(ctx, "Key %d rate limited, rotating...", idx+1)
				g.rotateKey(idx)
				lastErr = &TransientError{Err: err}
				continue
			}
			return "", classifyGemini(err)
		}

		return responseText(result)
	}
	return "", lastErr
}

// responseText extracts the answer. Content refused by the safety policy is
// fatal: asking again yields the same refusal.
func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil {
		return "", &TransientError{Err: errEmptyResponse}
	}
	if pf := result.PromptFeedback; pf != nil && pf.BlockReason != "" && pf.BlockReason != genai.BlockedReasonUnspecified {
		return "", &FatalError{Err: fmt.Errorf("prompt blocked by Gemini: %s", pf.BlockReason)}
	}
	if len(result.Candidates) == 0 || result.Candidates[0] == nil {
		return "", &TransientError{Err: errEmptyResponse}
	}

	candidate := result.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return "", &FatalError{Err: fmt.Errorf("response blocked by Gemini: %s", candidate.FinishReason)}
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	if text.Len() == 0 {
		return "", &TransientError{Err: errEmptyResponse}
	}
	return text.String(), nil
}

// client returns the shared genai client for the current key, creating it on first use.
func (g *geminiClient) client(ctx context.Context) (int, *genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.currentKey
	if c, ok := g.clients[idx]; ok {
		return idx, c, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKeys[idx],
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return idx, nil, err
	}
	g.clients[idx] = c
	return idx, c, nil
}

// rotateKey advances past failed, unless a concurrent run already did.
func (g *geminiClient) rotateKey(failed int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.currentKey == failed {
		g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
	}
}

func isRateLimited(err error) bool {
	if code, ok := geminiStatus(err); ok {
		return code == 429
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED")
}

func geminiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func classifyGemini(err error) error {
	if isRateLimited(err) {
		return &TransientError{Err: err}
	}
	code, _ := geminiStatus(err)
	return classifyStatus(code, err)
}
