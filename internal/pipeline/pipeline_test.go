package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/acquisition"
	"github.com/nguyentantai21042004/article-flow/internal/audio"
	"github.com/nguyentantai21042004/article-flow/internal/chunker"
	"github.com/nguyentantai21042004/article-flow/internal/completion"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"github.com/nguyentantai21042004/article-flow/internal/prompt"
	"github.com/panjf2000/ants/v2"
)

const testTemplate = "Write an SEO article.\nTranscript:{transcript}"

type fakeAcquirer struct {
	data []byte
	err  error

	mu         sync.Mutex
	workspaces []*audio.Workspace
}

func (f *fakeAcquirer) Acquire(_ context.Context, _ acquisition.Request, ws *audio.Workspace) (*audio.Resource, error) {
	f.mu.Lock()
	f.workspaces = append(f.workspaces, ws)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	path := ws.Path("input.mp3")
	if err := os.WriteFile(path, f.data, 0644); err != nil {
		return nil, err
	}
	return &audio.Resource{Path: path, Format: "mp3", Size: int64(len(f.data))}, nil
}

type fakeTranscriber struct {
	text    string
	err     error
	panics  bool
	started chan struct{}
	block   chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, res *audio.Resource) (string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.panics {
		panic("decoder crashed")
	}
	return f.text, f.err
}

// fakeInvoker answers through respond, which sees the 1-based attempt
// number for the chunk.
type fakeInvoker struct {
	respond func(doc prompt.Document, attempt int) (string, error)

	mu       sync.Mutex
	calls    []prompt.Document
	attempts map[int]int
}

func (f *fakeInvoker) Complete(ctx context.Context, doc prompt.Document) (completion.Article, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc)
	if f.attempts == nil {
		f.attempts = map[int]int{}
	}
	f.attempts[doc.ChunkIndex]++
	attempt := f.attempts[doc.ChunkIndex]
	f.mu.Unlock()

	text, err := f.respond(doc, attempt)
	if err != nil {
		return completion.Article{}, err
	}
	return completion.Article{ChunkIndex: doc.ChunkIndex, Text: text}, nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func echoInvoker() *fakeInvoker {
	return &fakeInvoker{respond: func(doc prompt.Document, _ int) (string, error) {
		return fmt.Sprintf("part %d", doc.ChunkIndex), nil
	}}
}

func testOptions(t *testing.T) Options {
	return Options{
		TempRoot:         t.TempDir(),
		MaxConcurrent:    2,
		ChunkUnit:        chunker.Words,
		MaxChunkUnits:    100,
		ChunkConcurrency: 1,
		MaxAttempts:      2,
	}
}

func newTestPipeline(t *testing.T, opts Options, acq *fakeAcquirer, tr *fakeTranscriber, inv *fakeInvoker) Pipeline {
	t.Helper()

	pool, err := ants.NewPool(10)
	if err != nil {
		t.Fatalf("ants.NewPool() error = %v", err)
	}
	t.Cleanup(pool.Release)

	p, err := New(opts, Dependencies{Acquirer: acq, Transcriber: tr, Invoker: inv, Pool: pool}, testTemplate, logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func assertReleased(t *testing.T, acq *fakeAcquirer) {
	t.Helper()
	acq.mu.Lock()
	defer acq.mu.Unlock()
	for _, ws := range acq.workspaces {
		if !ws.Released() {
			t.Errorf("workspace %s not released", ws.Dir)
		}
		if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
			t.Errorf("workspace %s still exists (stat err = %v)", ws.Dir, err)
		}
	}
}

type recorder struct {
	events []Event
}

func (r *recorder) observe(e Event) { r.events = append(r.events, e) }

func (r *recorder) states() []State {
	var out []State
	for _, e := range r.events {
		if e.Type == EventState {
			out = append(out, e.State)
		}
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("ID3 audio")}
	tr := &fakeTranscriber{text: "the quick brown fox"}
	inv := &fakeInvoker{respond: func(doc prompt.Document, _ int) (string, error) {
		if !strings.Contains(doc.Text, "the quick brown fox") {
			return "", &completion.FatalError{Err: errors.New("unexpected prompt")}
		}
		return "Article about a fox.", nil
	}}
	rec := &recorder{}

	p := newTestPipeline(t, testOptions(t), acq, tr, inv)
	res, err := p.Run(context.Background(), Job{Observer: rec.observe})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Article != "Article about a fox." {
		t.Errorf("Article = %q", res.Article)
	}
	if res.Transcript != "the quick brown fox" {
		t.Errorf("Transcript = %q", res.Transcript)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if inv.callCount() != 1 {
		t.Errorf("completion calls = %d, want 1", inv.callCount())
	}
	if res.Streamed != 4 {
		t.Errorf("Streamed = %d, want 4", res.Streamed)
	}

	want := []State{StateAcquiringAudio, StateTranscribing, StateStreaming, StateChunking, StateSummarizing, StateCompleted}
	got := rec.states()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("states = %v, want %v", got, want)
	}
	for _, e := range rec.events {
		if e.RunID != res.RunID {
			t.Errorf("event %+v has RunID %q, want %q", e, e.RunID, res.RunID)
		}
	}
	assertReleased(t, acq)
}

func TestRunMultiChunkPreservesOrder(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("audio")}
	tr := &fakeTranscriber{text: words(250)}
	// later chunks finish first
	inv := &fakeInvoker{respond: func(doc prompt.Document, _ int) (string, error) {
		time.Sleep(time.Duration(3-doc.ChunkIndex) * 20 * time.Millisecond)
		return fmt.Sprintf("part %d", doc.ChunkIndex), nil
	}}

	opts := testOptions(t)
	opts.ChunkConcurrency = 3
	p := newTestPipeline(t, opts, acq, tr, inv)

	res, err := p.Run(context.Background(), Job{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if inv.callCount() != 3 {
		t.Fatalf("completion calls = %d, want 3", inv.callCount())
	}
	if res.Article != "part 0\n\npart 1\n\npart 2" {
		t.Errorf("Article = %q", res.Article)
	}

	sizes := map[int]int{}
	for _, doc := range inv.calls {
		body := doc.Text[strings.Index(doc.Text, "Transcript:")+len("Transcript:"):]
		sizes[doc.ChunkIndex] = len(strings.Fields(body))
	}
	if sizes[0] != 100 || sizes[1] != 100 || sizes[2] != 50 {
		t.Errorf("chunk sizes = %v, want 100/100/50", sizes)
	}
	assertReleased(t, acq)
}

func TestRunTranscriptionFailure(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("not audio")}
	tr := &fakeTranscriber{err: errors.New("invalid data found when processing input")}
	inv := echoInvoker()
	rec := &recorder{}

	p := newTestPipeline(t, testOptions(t), acq, tr, inv)
	res, err := p.Run(context.Background(), Job{Observer: rec.observe})

	var te *TranscriptionError
	if !errors.As(err, &te) {
		t.Fatalf("Run() error = %v, want *TranscriptionError", err)
	}
	if res != nil {
		t.Errorf("Run() result = %+v, want nil", res)
	}
	if inv.callCount() != 0 {
		t.Errorf("completion calls = %d, want 0", inv.callCount())
	}
	states := rec.states()
	if states[len(states)-1] != StateAborted {
		t.Errorf("final state = %s, want aborted", states[len(states)-1])
	}
	assertReleased(t, acq)
}

func TestRunStreamStopStillSummarizes(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("audio")}
	tr := &fakeTranscriber{text: words(20)}
	inv := echoInvoker()

	emitted := 0
	job := Job{
		Observer: func(e Event) {
			if e.Type == EventTranscript {
				emitted++
			}
		},
		StopStream: func() bool { return emitted >= 5 },
	}

	p := newTestPipeline(t, testOptions(t), acq, tr, inv)
	res, err := p.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Streamed != 5 || emitted != 5 {
		t.Errorf("Streamed = %d, emitted = %d, want 5", res.Streamed, emitted)
	}
	if inv.callCount() != 1 {
		t.Fatalf("completion calls = %d, want 1", inv.callCount())
	}
	if !strings.Contains(inv.calls[0].Text, words(20)) {
		t.Errorf("prompt does not carry the full transcript: %q", inv.calls[0].Text)
	}
}

func TestRunCleanupOnEveryFailure(t *testing.T) {
	transient := &completion.TransientError{Err: errors.New("503 service unavailable")}
	fatal := &completion.FatalError{Err: errors.New("401 invalid api key")}

	tests := []struct {
		name   string
		acq    *fakeAcquirer
		tr     *fakeTranscriber
		inv    *fakeInvoker
		target func(error) bool
	}{
		{
			name:   "acquisition error",
			acq:    &fakeAcquirer{err: errors.New("download failed")},
			tr:     &fakeTranscriber{text: "never"},
			inv:    echoInvoker(),
			target: func(err error) bool { var e *AcquisitionError; return errors.As(err, &e) },
		},
		{
			name:   "empty audio",
			acq:    &fakeAcquirer{data: nil},
			tr:     &fakeTranscriber{text: "never"},
			inv:    echoInvoker(),
			target: func(err error) bool { var e *AcquisitionError; return errors.As(err, &e) },
		},
		{
			name:   "silent transcript",
			acq:    &fakeAcquirer{data: []byte("audio")},
			tr:     &fakeTranscriber{text: "  \n\t"},
			inv:    echoInvoker(),
			target: func(err error) bool { var e *TranscriptionError; return errors.As(err, &e) },
		},
		{
			name: "fatal completion",
			acq:  &fakeAcquirer{data: []byte("audio")},
			tr:   &fakeTranscriber{text: "hello world"},
			inv: &fakeInvoker{respond: func(prompt.Document, int) (string, error) {
				return "", fatal
			}},
			target: func(err error) bool { var e *completion.FatalError; return errors.As(err, &e) },
		},
		{
			name: "transient completion exhausted",
			acq:  &fakeAcquirer{data: []byte("audio")},
			tr:   &fakeTranscriber{text: "hello world"},
			inv: &fakeInvoker{respond: func(prompt.Document, int) (string, error) {
				return "", transient
			}},
			target: func(err error) bool { return completion.IsTransient(err) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, testOptions(t), tt.acq, tt.tr, tt.inv)
			_, err := p.Run(context.Background(), Job{})
			if err == nil || !tt.target(err) {
				t.Fatalf("Run() error = %v", err)
			}
			if len(tt.acq.workspaces) != 1 {
				t.Fatalf("workspaces = %d, want 1", len(tt.acq.workspaces))
			}
			assertReleased(t, tt.acq)
		})
	}
}

func TestRunCleanupOnCollaboratorPanic(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("audio")}
	p := newTestPipeline(t, testOptions(t), acq, &fakeTranscriber{panics: true}, echoInvoker())

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		_, _ = p.Run(context.Background(), Job{})
	}()

	assertReleased(t, acq)
}

func TestRunSummarizationErrorCarriesChunk(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("audio")}
	tr := &fakeTranscriber{text: words(250)}
	inv := &fakeInvoker{respond: func(doc prompt.Document, _ int) (string, error) {
		if doc.ChunkIndex == 1 {
			return "", &completion.FatalError{Err: errors.New("content policy")}
		}
		return "ok", nil
	}}

	p := newTestPipeline(t, testOptions(t), acq, tr, inv)
	_, err := p.Run(context.Background(), Job{})

	var se *SummarizationError
	if !errors.As(err, &se) {
		t.Fatalf("Run() error = %v, want *SummarizationError", err)
	}
	if se.Chunk != 1 || se.Chunks != 3 {
		t.Errorf("SummarizationError = chunk %d of %d, want 1 of 3", se.Chunk, se.Chunks)
	}
	// chunk 2 is never attempted once chunk 1 failed
	if inv.callCount() != 2 {
		t.Errorf("completion calls = %d, want 2", inv.callCount())
	}
	assertReleased(t, acq)
}

func TestRunChunkPanicAborts(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("audio")}
	tr := &fakeTranscriber{text: words(250)}
	inv := &fakeInvoker{respond: func(doc prompt.Document, _ int) (string, error) {
		if doc.ChunkIndex == 1 {
			panic("invoker exploded")
		}
		return "ok", nil
	}}

	rec := &recorder{}
	p := newTestPipeline(t, testOptions(t), acq, tr, inv)
	res, err := p.Run(context.Background(), Job{Observer: rec.observe})

	var se *SummarizationError
	if !errors.As(err, &se) {
		t.Fatalf("Run() = %v, %v; want *SummarizationError", res, err)
	}
	if se.Chunk != 1 || se.Chunks != 3 {
		t.Errorf("SummarizationError = chunk %d of %d, want 1 of 3", se.Chunk, se.Chunks)
	}
	if !strings.Contains(se.Error(), "invoker exploded") {
		t.Errorf("error = %q, want panic value", se.Error())
	}
	if states := rec.states(); len(states) == 0 || states[len(states)-1] != StateAborted {
		t.Errorf("states = %v, want final %s", states, StateAborted)
	}
	assertReleased(t, acq)
}

func TestRunRetry(t *testing.T) {
	transient := &completion.TransientError{Err: errors.New("429 rate limited")}
	fatal := &completion.FatalError{Err: errors.New("403 forbidden")}

	tests := []struct {
		name        string
		maxAttempts int
		answers     []error
		wantCalls   int
		wantErr     bool
	}{
		{"transient then success", 2, []error{transient, nil}, 2, false},
		{"transient twice", 2, []error{transient, transient}, 2, true},
		{"fatal is not retried", 2, []error{fatal, nil}, 1, true},
		{"single attempt", 1, []error{transient, nil}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{respond: func(_ prompt.Document, attempt int) (string, error) {
				if err := tt.answers[attempt-1]; err != nil {
					return "", err
				}
				return "article", nil
			}}
			opts := testOptions(t)
			opts.MaxAttempts = tt.maxAttempts
			opts.RetryBackoff = time.Millisecond

			acq := &fakeAcquirer{data: []byte("audio")}
			p := newTestPipeline(t, opts, acq, &fakeTranscriber{text: "hello world"}, inv)
			res, err := p.Run(context.Background(), Job{})

			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && res.Article != "article" {
				t.Errorf("Article = %q", res.Article)
			}
			if inv.callCount() != tt.wantCalls {
				t.Errorf("completion calls = %d, want %d", inv.callCount(), tt.wantCalls)
			}
		})
	}
}

func TestRunCancelledDuringTranscription(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("audio")}
	tr := &fakeTranscriber{started: make(chan struct{}), block: make(chan struct{})}
	inv := echoInvoker()
	p := newTestPipeline(t, testOptions(t), acq, tr, inv)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-tr.started
		cancel()
	}()

	_, err := p.Run(ctx, Job{})

	var ce *CancelledError
	if !errors.As(err, &ce) {
		t.Fatalf("Run() error = %v, want *CancelledError", err)
	}
	if ce.State != StateTranscribing {
		t.Errorf("cancelled in %s, want transcribing", ce.State)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error does not wrap context.Canceled: %v", err)
	}
	if inv.callCount() != 0 {
		t.Errorf("completion calls = %d, want 0", inv.callCount())
	}
	assertReleased(t, acq)
}

func TestRunAdmission(t *testing.T) {
	acq := &fakeAcquirer{data: []byte("audio")}
	tr := &fakeTranscriber{text: "hello", started: make(chan struct{}), block: make(chan struct{})}
	opts := testOptions(t)
	opts.MaxConcurrent = 1
	p := newTestPipeline(t, opts, acq, tr, echoInvoker())

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), Job{})
		done <- err
	}()
	<-tr.started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := p.Run(ctx, Job{})

	var ce *CancelledError
	if !errors.As(err, &ce) || ce.State != StateIdle {
		t.Fatalf("second Run() error = %v, want cancellation while idle", err)
	}

	close(tr.block)
	if err := <-done; err != nil {
		t.Errorf("first Run() error = %v", err)
	}
}

func TestNew(t *testing.T) {
	pool, err := ants.NewPool(1)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Release()

	deps := Dependencies{Acquirer: &fakeAcquirer{}, Transcriber: &fakeTranscriber{}, Invoker: echoInvoker(), Pool: pool}

	tests := []struct {
		name     string
		modify   func(*Options, *Dependencies, *string)
		wantErr  bool
		template bool
	}{
		{"valid", func(*Options, *Dependencies, *string) {}, false, false},
		{"missing placeholder", func(_ *Options, _ *Dependencies, tpl *string) { *tpl = "no slot" }, true, true},
		{"zero budget", func(o *Options, _ *Dependencies, _ *string) { o.MaxChunkUnits = 0 }, true, false},
		{"too many attempts", func(o *Options, _ *Dependencies, _ *string) { o.MaxAttempts = 3 }, true, false},
		{"no pool", func(_ *Options, d *Dependencies, _ *string) { d.Pool = nil }, true, false},
		{"no temp root", func(o *Options, _ *Dependencies, _ *string) { o.TempRoot = "" }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, d, tpl := testOptions(t), deps, testTemplate
			tt.modify(&opts, &d, &tpl)

			_, err := New(opts, d, tpl, logger.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			var te *prompt.TemplateError
			if tt.template && !errors.As(err, &te) {
				t.Errorf("New() error = %v, want *prompt.TemplateError", err)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if StateAcquiringAudio.String() != "acquiring_audio" || State(99).String() != "unknown" {
		t.Error("unexpected state names")
	}
	if !StateAborted.Terminal() || StateSummarizing.Terminal() {
		t.Error("unexpected Terminal()")
	}
}
