package config

import (
	"fmt"
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/chunker"
)

type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Paths       PathsConfig       `yaml:"paths"`
	Performance PerformanceConfig `yaml:"performance"`
	Server      ServerConfig      `yaml:"server"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Whisper     WhisperConfig     `yaml:"whisper"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Downloader  DownloaderConfig  `yaml:"downloader"`
	Completion  CompletionConfig  `yaml:"completion"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Prompt      PromptConfig      `yaml:"prompt"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`

	// Credentials come from the environment only, never from the YAML file.
	Credentials Credentials `yaml:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PathsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Archived string `yaml:"archived"`
	Temp     string `yaml:"temp"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

type TranscriberConfig struct {
	Backend string `yaml:"backend"`
}

type WhisperConfig struct {
	ModelPath  string `yaml:"model_path"`
	BinaryPath string `yaml:"binary_path"`
	Language   string `yaml:"language"`
	Prompt     string `yaml:"prompt"`
	Threads    int    `yaml:"threads"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
}

type DownloaderConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Format     string `yaml:"format"`
	AudioCodec string `yaml:"audio_codec"`
}

type CompletionConfig struct {
	Backend string        `yaml:"backend"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	BaseURL            string `yaml:"base_url"`
	TranscriptionModel string `yaml:"transcription_model"`
}

type PromptConfig struct {
	TemplatePath string `yaml:"template_path"`
}

type PipelineConfig struct {
	ChunkUnit        string        `yaml:"chunk_unit"`
	MaxChunkUnits    int           `yaml:"max_chunk_units"`
	ChunkConcurrency int           `yaml:"chunk_concurrency"`
	MaxAttempts      int           `yaml:"max_attempts"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	StreamDelay      time.Duration `yaml:"stream_delay"`
}

type Credentials struct {
	OpenAIAPIKey  string
	GeminiAPIKeys []string
}

const (
	BackendWhisperCPP = "whisper-cpp"
	BackendOpenAI     = "openai"
	BackendGemini     = "gemini"
)

func (c *Config) Validate() error {
	if c.Paths.Input == "" {
		return fmt.Errorf("paths.input is required")
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}

	if c.Paths.Archived == "" {
		c.Paths.Archived = "data/archived"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = "data/temp"
	}
	if c.Performance.MaxConcurrent < 0 {
		return fmt.Errorf("performance.max_concurrent must be at least 1, got %d", c.Performance.MaxConcurrent)
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 2
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MaxUploadSize == 0 {
		c.Server.MaxUploadSize = 512 << 20
	}

	if c.Transcriber.Backend == "" {
		c.Transcriber.Backend = BackendWhisperCPP
	}
	switch c.Transcriber.Backend {
	case BackendWhisperCPP:
		if c.Whisper.ModelPath == "" {
			return fmt.Errorf("whisper.model_path is required")
		}
		if c.Whisper.BinaryPath == "" {
			return fmt.Errorf("whisper.binary_path is required")
		}
	case BackendOpenAI:
	default:
		return fmt.Errorf("transcriber.backend %q is not supported", c.Transcriber.Backend)
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "auto"
	}
	if c.Whisper.Threads == 0 {
		c.Whisper.Threads = 8
	}
	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Downloader.BinaryPath == "" {
		c.Downloader.BinaryPath = "yt-dlp"
	}
	if c.Downloader.Format == "" {
		c.Downloader.Format = "bestaudio/best"
	}
	if c.Downloader.AudioCodec == "" {
		c.Downloader.AudioCodec = "mp3"
	}

	if c.Completion.Backend == "" {
		c.Completion.Backend = BackendGemini
	}
	switch c.Completion.Backend {
	case BackendGemini:
		if c.Completion.Model == "" {
			c.Completion.Model = "gemini-2.5-flash"
		}
	case BackendOpenAI:
		if c.Completion.Model == "" {
			c.Completion.Model = "gpt-4o-mini"
		}
	default:
		return fmt.Errorf("completion.backend %q is not supported", c.Completion.Backend)
	}
	if c.Completion.Timeout == 0 {
		c.Completion.Timeout = 2 * time.Minute
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}

	unit, err := chunker.ParseUnit(c.Pipeline.ChunkUnit)
	if err != nil {
		return fmt.Errorf("pipeline.chunk_unit must be words or runes, got %q", c.Pipeline.ChunkUnit)
	}
	c.Pipeline.ChunkUnit = unit.String()
	if c.Pipeline.MaxChunkUnits < 0 {
		return fmt.Errorf("pipeline.max_chunk_units must be positive")
	}
	if c.Pipeline.MaxChunkUnits == 0 {
		c.Pipeline.MaxChunkUnits = 1500
	}
	if c.Pipeline.ChunkConcurrency < 0 {
		return fmt.Errorf("pipeline.chunk_concurrency must be at least 1, got %d", c.Pipeline.ChunkConcurrency)
	}
	if c.Pipeline.ChunkConcurrency == 0 {
		c.Pipeline.ChunkConcurrency = 1
	}
	if c.Pipeline.MaxAttempts == 0 {
		c.Pipeline.MaxAttempts = 2
	}
	if c.Pipeline.MaxAttempts < 1 || c.Pipeline.MaxAttempts > 2 {
		return fmt.Errorf("pipeline.max_attempts must be 1 or 2, got %d", c.Pipeline.MaxAttempts)
	}
	if c.Pipeline.RetryBackoff == 0 {
		c.Pipeline.RetryBackoff = 2 * time.Second
	}
	if c.Pipeline.StreamDelay == 0 {
		c.Pipeline.StreamDelay = 50 * time.Millisecond
	}

	return nil
}

// CheckCredentials reports whether the configured backends have the keys they need.
func (c *Config) CheckCredentials() error {
	if c.Completion.Backend == BackendGemini && len(c.Credentials.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEYS is required for the gemini completion backend")
	}
	if (c.Completion.Backend == BackendOpenAI || c.Transcriber.Backend == BackendOpenAI) && c.Credentials.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
	}
	return nil
}
