package session

import (
	"time"

	"github.com/sant0-9/narrator/internal/pipeline"
)

// State is the controller's position in the generation lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateDisplaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateDisplaying:
		return "displaying"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FailureKind classifies why a request did not produce a narrative.
type FailureKind string

const (
	FailureConfiguration FailureKind = "configuration"
	FailureTransport     FailureKind = "transport"
	FailureEmptyResponse FailureKind = "empty_response"
	FailureParse         FailureKind = "parse"
)

// EmptyResponseMessage is shown when the model returned nothing usable.
const EmptyResponseMessage = "No narrative generated. Please check your data and API key."

// Failure is the presentable form of an error outcome. Message never contains
// the API key.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	StatusCode int         `json:"status_code,omitempty"`
	RawText    string      `json:"raw_text,omitempty"`
}

// View is the render-ready snapshot of a session.
type View struct {
	State     State             `json:"state"`
	Overview  string            `json:"overview,omitempty"`
	Metrics   []pipeline.Metric `json:"metrics,omitempty"`
	Timeline  string            `json:"timeline,omitempty"`
	RowCount  int               `json:"row_count"`
	Truncated bool              `json:"truncated"`
	Failure   *Failure          `json:"failure,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Model     string            `json:"model,omitempty"`
	Duration  time.Duration     `json:"duration_ns,omitempty"`

	// Seq increases with every published snapshot.
	Seq uint64 `json:"seq"`

	// Progress is the latest pipeline stage while loading.
	Progress pipeline.Progress `json:"-"`
}

func (v View) clone() View {
	if v.Metrics != nil {
		v.Metrics = append([]pipeline.Metric(nil), v.Metrics...)
	}
	if v.Failure != nil {
		f := *v.Failure
		v.Failure = &f
	}
	return v
}
