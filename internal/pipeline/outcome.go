package pipeline

// Metric is one label/value card of a narrative.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// NarrativeRecord is the structured reply the model is asked to produce.
type NarrativeRecord struct {
	Overview string   `json:"overview"`
	Metrics  []Metric `json:"metrics"`
	Timeline string   `json:"timeline"`
}

// Outcome is the result of one generation request. It is exactly one of
// Success, EmptyResponse, TransportError or ParseError.
type Outcome interface {
	outcome()
}

// Success carries a parsed narrative.
type Success struct {
	Record NarrativeRecord
}

// EmptyResponse means the endpoint answered but produced no usable text.
type EmptyResponse struct{}

// TransportError means the request itself failed. StatusCode is zero when no
// HTTP response was received.
type TransportError struct {
	StatusCode int
	Message    string
}

// ParseError means the model text was not a valid narrative object.
type ParseError struct {
	Message string
	RawText string
}

func (Success) outcome()        {}
func (EmptyResponse) outcome()  {}
func (TransportError) outcome() {}
func (ParseError) outcome()     {}
