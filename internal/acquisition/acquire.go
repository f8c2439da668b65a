package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/nguyentantai21042004/article-flow/internal/audio"
)

var (
	errNoSource    = errors.New("request has no upload, file or URL")
	errEmptyAudio  = errors.New("audio is empty")
	errNoDownload  = errors.New("downloader produced no audio file")
	errUnsupported = errors.New("unsupported audio format")
)

// Acquire copies or downloads the requested audio into ws and checks that
// the result is a non-empty file of a supported format.
func (a *implAcquirer) Acquire(ctx context.Context, req Request, ws *audio.Workspace) (*audio.Resource, error) {
	var (
		path string
		err  error
	)

	switch {
	case req.URL != "":
		path, err = a.download(ctx, req.URL, ws)
	case req.Body != nil:
		path, err = a.fromUpload(req.Filename, req.Body, ws)
	case req.Path != "":
		name := req.Filename
		if name == "" {
			name = req.Path
		}
		path, err = a.fromFile(req.Path, name, ws)
	default:
		err = errNoSource
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat audio: %w", err)
	}
	if info.Size() == 0 {
		return nil, errEmptyAudio
	}

	a.logger.Info(ctx, "Audio ready: %s (%d bytes)", path, info.Size())
	return &audio.Resource{
		Path:   path,
		Format: audio.FormatOf(path),
		Size:   info.Size(),
	}, nil
}

func (a *implAcquirer) fromUpload(filename string, body io.Reader, ws *audio.Workspace) (string, error) {
	format := audio.FormatOf(filename)
	if !audio.IsSupported(format) {
		return "", fmt.Errorf("%w: %q", errUnsupported, filename)
	}

	dst := ws.Path("input." + format)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return dst, f.Close()
}

// fromFile copies src into the workspace so the run never touches the original.
func (a *implAcquirer) fromFile(src, name string, ws *audio.Workspace) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	return a.fromUpload(name, in, ws)
}

// download pulls the best audio stream of rawURL with yt-dlp and converts it
// to the configured codec inside the workspace.
func (a *implAcquirer) download(ctx context.Context, rawURL string, ws *audio.Workspace) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q", rawURL)
	}

	a.logger.Info(ctx, "Downloading audio: %s", rawURL)

	args := []string{
		"-f", a.cfg.Format,
		"-x",
		"--audio-format", a.cfg.AudioCodec,
		"--audio-quality", "192K",
		"--no-playlist",
		"--no-progress",
		"-o", "audio.%(ext)s",
		rawURL,
	}
	if _, err := a.executor.ExecuteInDir(ctx, ws.Dir, a.cfg.BinaryPath, args...); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	matches, err := filepath.Glob(ws.Path("audio.*"))
	if err != nil {
		return "", fmt.Errorf("find download: %w", err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if audio.IsSupported(audio.FormatOf(m)) {
			return m, nil
		}
	}
	return "", errNoDownload
}
