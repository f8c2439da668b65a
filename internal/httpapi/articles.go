package httpapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nguyentantai21042004/article-flow/internal/acquisition"
	"github.com/nguyentantai21042004/article-flow/internal/completion"
	"github.com/nguyentantai21042004/article-flow/internal/pipeline"
)

type sseEvent struct {
	name string
	data any
}

// transcriptDelta turns the accumulated transcript of successive events into
// the text appended since the previous one.
type transcriptDelta struct {
	sent int
}

func (d *transcriptDelta) next(text string) string {
	if d.sent > len(text) {
		d.sent = 0
	}
	delta := text[d.sent:]
	d.sent = len(text)
	return delta
}

// createArticle accepts a multipart "file" or a form "url" and streams the
// run as server-sent events: state, transcript deltas, chunk, then article
// or error.
// Dropping the connection cancels the run.
func (s *implServer) createArticle(c *gin.Context) {
	if s.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
	}

	req, file, err := parseSource(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if file != nil {
		defer file.Close()
	}

	ctx := c.Request.Context()
	events := make(chan sseEvent, 64)
	send := func(ev sseEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)

		var delta transcriptDelta
		res, err := s.pipe.Run(ctx, pipeline.Job{
			Source: req,
			Observer: func(e pipeline.Event) {
				if ev, ok := toSSE(e, &delta); ok {
					send(ev)
				}
			},
		})
		if err != nil {
			s.logger.Error(ctx, "Article run for %s failed: %v", req.Describe(), err)
			send(sseEvent{name: "error", data: describeError(err)})
			return
		}
		send(sseEvent{name: "article", data: gin.H{
			"run_id":      res.RunID,
			"article":     res.Article,
			"transcript":  res.Transcript,
			"chunks":      len(res.Articles),
			"duration_ms": res.Duration.Milliseconds(),
		}})
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	gone := c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(ev.name, ev.data)
		return true
	})
	if gone {
		// The run sees the cancelled request context; wait for its teardown.
		for range events {
		}
		s.logger.Info(context.Background(), "Client disconnected from %s", req.Describe())
	}
}

func parseSource(c *gin.Context) (acquisition.Request, multipart.File, error) {
	rawURL := strings.TrimSpace(c.PostForm("url"))
	file, header, err := c.Request.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return acquisition.Request{}, nil, errors.New("invalid upload: " + err.Error())
	}

	switch {
	case file != nil && rawURL != "":
		file.Close()
		return acquisition.Request{}, nil, errors.New("send either a file or a url, not both")
	case file != nil:
		return acquisition.Request{Filename: header.Filename, Body: file}, file, nil
	case rawURL != "":
		return acquisition.Request{URL: rawURL}, nil, nil
	default:
		return acquisition.Request{}, nil, errors.New("a file or a url is required")
	}
}

// toSSE maps a pipeline event to its wire form. Transcript events carry only
// the words added since the last one.
func toSSE(e pipeline.Event, delta *transcriptDelta) (sseEvent, bool) {
	switch e.Type {
	case pipeline.EventState:
		return sseEvent{name: "state", data: gin.H{"run_id": e.RunID, "state": e.State.String()}}, true
	case pipeline.EventTranscript:
		return sseEvent{name: "transcript", data: gin.H{"delta": delta.next(e.Text)}}, true
	case pipeline.EventChunk:
		return sseEvent{name: "chunk", data: gin.H{"index": e.Chunk, "total": e.Chunks}}, true
	default:
		return sseEvent{}, false
	}
}

// describeError names the failing stage without passing on provider
// messages, which may echo request payloads.
func describeError(err error) gin.H {
	var (
		acqErr    *pipeline.AcquisitionError
		transErr  *pipeline.TranscriptionError
		sumErr    *pipeline.SummarizationError
		cancelErr *pipeline.CancelledError
	)

	switch {
	case errors.As(err, &cancelErr):
		return gin.H{"stage": cancelErr.State.String(), "message": "run cancelled"}
	case errors.As(err, &acqErr):
		return gin.H{"stage": pipeline.StateAcquiringAudio.String(), "message": "could not obtain audio from the source"}
	case errors.As(err, &transErr):
		return gin.H{"stage": pipeline.StateTranscribing.String(), "message": "could not transcribe the audio"}
	case errors.As(err, &sumErr):
		return gin.H{
			"stage":     pipeline.StateSummarizing.String(),
			"message":   "article generation failed",
			"chunk":     sumErr.Chunk,
			"chunks":    sumErr.Chunks,
			"retryable": completion.IsTransient(sumErr),
		}
	default:
		return gin.H{"stage": pipeline.StateAborted.String(), "message": "internal error"}
	}
}
