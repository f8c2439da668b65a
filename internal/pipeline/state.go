package pipeline

import "sync"

type State int

const (
	StateIdle State = iota
	StateAcquiringAudio
	StateTranscribing
	StateStreaming
	StateChunking
	StateSummarizing
	StateCompleted
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateAcquiringAudio: "acquiring_audio",
	StateTranscribing:   "transcribing",
	StateStreaming:      "streaming",
	StateChunking:       "chunking",
	StateSummarizing:    "summarizing",
	StateCompleted:      "completed",
	StateAborted:        "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// run is the lifecycle record of one job. state is only touched by the
// goroutine driving the job; notify may be called from chunk workers.
type run struct {
	id       string
	state    State
	observer Observer
	mu       sync.Mutex
}

func (r *run) notify(e Event) {
	if r.observer == nil {
		return
	}
	e.RunID = r.id
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer(e)
}
