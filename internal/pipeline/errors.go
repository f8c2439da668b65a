package pipeline

import "fmt"

// AcquisitionError means the audio could not be obtained or read.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string { return "acquire audio: " + e.Err.Error() }
func (e *AcquisitionError) Unwrap() error { return e.Err }

// TranscriptionError means speech-to-text rejected or failed on the audio.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string { return "transcribe: " + e.Err.Error() }
func (e *TranscriptionError) Unwrap() error { return e.Err }

// SummarizationError carries the index of the chunk whose completion failed.
type SummarizationError struct {
	Chunk  int
	Chunks int
	Err    error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize chunk %d of %d: %v", e.Chunk+1, e.Chunks, e.Err)
}
func (e *SummarizationError) Unwrap() error { return e.Err }

// CancelledError is returned when the caller cancelled the run. State is
// the state the run was in when it noticed.
type CancelledError struct {
	State State
	Err   error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled while %s: %v", e.State, e.Err)
}
func (e *CancelledError) Unwrap() error { return e.Err }
