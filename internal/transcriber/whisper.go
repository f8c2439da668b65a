package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nguyentantai21042004/article-flow/internal/audio"
)

var errNoSpeech = errors.New("no speech recognised")

func (w *whisperCPP) Transcribe(ctx context.Context, res *audio.Resource) (string, error) {
	wavPath, err := w.normalize(ctx, res)
	if err != nil {
		return "", err
	}

	// whisper.cpp appends .txt to the output prefix
	outputPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))

	w.logger.Info(ctx, "Starting transcription with %d threads: %s", w.cfg.Threads, wavPath)

	// -otxt: plain text output
	// -l: language, "auto" lets whisper detect it
	// -bo: best of 5 for better accuracy
	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"-otxt",
		"-np",
		"-l", w.cfg.Language,
		"-t", strconv.Itoa(w.cfg.Threads),
		"-bo", "5",
		"--output-file", outputPrefix,
	}
	if w.cfg.Prompt != "" {
		args = append(args, "--prompt", w.cfg.Prompt)
	}

	if _, err := w.executor.Execute(ctx, w.cfg.BinaryPath, args...); err != nil {
		return "", fmt.Errorf("whisper transcribe: %w", err)
	}

	data, err := os.ReadFile(outputPrefix + ".txt")
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	text := joinLines(string(data))
	if text == "" {
		return "", errNoSpeech
	}

	w.logger.Info(ctx, "Transcription completed: %d words", len(strings.Fields(text)))
	return text, nil
}

// normalize converts the resource to 16kHz mono PCM WAV next to it, the
// input format whisper.cpp expects.
func (w *whisperCPP) normalize(ctx context.Context, res *audio.Resource) (string, error) {
	wavPath := strings.TrimSuffix(res.Path, filepath.Ext(res.Path)) + "_16k.wav"

	// -vn: drop any video stream
	// -ar 16000 -ac 1: 16kHz mono
	// -c:a pcm_s16le: 16-bit little-endian PCM
	args := []string{
		"-i", res.Path,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-threads", "0",
		"-y",
		wavPath,
	}

	if _, err := w.executor.Execute(ctx, w.ffmpeg, args...); err != nil {
		return "", fmt.Errorf("ffmpeg normalize %s audio: %w", res.Format, err)
	}
	return wavPath, nil
}

// joinLines folds whisper's one-segment-per-line output into a single paragraph.
func joinLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
