package transcriber

import (
	"github.com/nguyentantai21042004/article-flow/internal/config"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"github.com/nguyentantai21042004/article-flow/pkg/executor"
	"github.com/sashabaranov/go-openai"
)

type whisperCPP struct {
	cfg      config.WhisperConfig
	ffmpeg   string
	executor executor.Executor
	logger   logger.Logger
}

// NewWhisperCPP creates a Transcriber running the local whisper.cpp binary
// on audio normalised by ffmpeg.
func NewWhisperCPP(cfg config.WhisperConfig, ffmpeg config.FFmpegConfig, exec executor.Executor, log logger.Logger) Transcriber {
	return &whisperCPP{
		cfg:      cfg,
		ffmpeg:   ffmpeg.BinaryPath,
		executor: exec,
		logger:   log,
	}
}

type openAIWhisper struct {
	client   *openai.Client
	model    string
	language string
	logger   logger.Logger
}

// NewOpenAI creates a Transcriber backed by the OpenAI audio transcription API.
func NewOpenAI(apiKey, baseURL, model, language string, log logger.Logger) Transcriber {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" && baseURL != "https://api.openai.com/v1" {
		clientConfig.BaseURL = baseURL
	}
	if language == "auto" {
		language = ""
	}

	return &openAIWhisper{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: language,
		logger:   log,
	}
}
