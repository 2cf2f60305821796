package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sant0-9/narrator/internal/llm"
	"github.com/sant0-9/narrator/internal/prompts"
	"go.uber.org/zap"
)

// Stage represents a pipeline stage
type Stage int

const (
	StageEncoding Stage = iota
	StagePrompting
	StageGenerating
	StageParsing
	StageDone
)

// TotalStages counts the working stages, excluding StageDone.
const TotalStages = 4

func (s Stage) String() string {
	switch s {
	case StageEncoding:
		return "Encoding"
	case StagePrompting:
		return "Prompting"
	case StageGenerating:
		return "Generating"
	case StageParsing:
		return "Parsing"
	case StageDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Progress represents pipeline progress
type Progress struct {
	Stage       Stage
	StageIndex  int
	TotalStages int
	Message     string
}

// Request carries everything one generation needs.
type Request struct {
	ID      string
	Fields  []FieldMeta
	Rows    []Row
	Persona string
	Model   string
	APIKey  string
}

// Result contains pipeline output
type Result struct {
	Outcome  Outcome
	Payload  EncodedPayload
	Prompt   string
	Duration time.Duration
}

// Pipeline turns rows into a narrative outcome.
type Pipeline struct {
	client     llm.Client
	format     CellFormatter
	maxRows    int
	logger     *zap.Logger
	onProgress func(Progress)
}

// NewPipeline creates a new pipeline
func NewPipeline(client llm.Client, format CellFormatter, maxRows int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		client:  client,
		format:  format,
		maxRows: maxRows,
		logger:  logger,
	}
}

// SetProgressCallback sets the progress callback
func (p *Pipeline) SetProgressCallback(fn func(Progress)) {
	p.onProgress = fn
}

func (p *Pipeline) progress(stage Stage, msg string) {
	if p.onProgress != nil {
		p.onProgress(Progress{
			Stage:       stage,
			StageIndex:  int(stage),
			TotalStages: TotalStages,
			Message:     msg,
		})
	}
}

// Encode builds the payload for req using the pipeline's formatter and row cap.
func (p *Pipeline) Encode(req *Request) EncodedPayload {
	return Encode(req.Fields, req.Rows, p.format, p.maxRows)
}

// Run executes one request end to end. It never returns an error: every
// failure is expressed as an Outcome.
func (p *Pipeline) Run(ctx context.Context, req *Request) *Result {
	start := time.Now()
	log := p.logger.With(zap.String("request_id", req.ID), zap.String("model", req.Model))

	p.progress(StageEncoding, fmt.Sprintf("Encoding %d rows...", len(req.Rows)))
	payload := p.Encode(req)
	log.Debug("payload encoded",
		zap.Int("rows", len(payload.Lines)),
		zap.Int("total_rows", payload.TotalRows),
		zap.Bool("truncated", payload.Truncated))

	p.progress(StagePrompting, "Building prompt...")
	prompt := prompts.BuildNarrativePrompt(req.Persona, payload.Text())

	p.progress(StageGenerating, fmt.Sprintf("Waiting for %s...", req.Model))
	raw, err := p.client.Generate(ctx, &llm.GenerateRequest{
		Model:  req.Model,
		APIKey: req.APIKey,
		Prompt: prompt,
	})

	result := &Result{Payload: payload, Prompt: prompt}
	if err != nil {
		result.Outcome = outcomeFromError(err)
		log.Warn("generation failed", zap.Error(err))
	} else {
		p.progress(StageParsing, "Parsing narrative...")
		result.Outcome = Parse(raw)
		if pe, ok := result.Outcome.(ParseError); ok {
			log.Warn("model output was not a narrative object",
				zap.String("error", pe.Message),
				zap.Int("raw_length", len(pe.RawText)))
		}
	}

	result.Duration = time.Since(start)
	p.progress(StageDone, "Done")
	log.Info("generation finished",
		zap.String("outcome", OutcomeKind(result.Outcome)),
		zap.Duration("duration", result.Duration))

	return result
}

func outcomeFromError(err error) Outcome {
	if errors.Is(err, llm.ErrEmptyResponse) {
		return EmptyResponse{}
	}
	var se *llm.StatusError
	if errors.As(err, &se) {
		return TransportError{StatusCode: se.Code, Message: se.Error()}
	}
	return TransportError{Message: err.Error()}
}

// OutcomeKind names an outcome for logs and JSON output.
func OutcomeKind(o Outcome) string {
	switch o.(type) {
	case Success:
		return "success"
	case EmptyResponse:
		return "empty_response"
	case TransportError:
		return "transport_error"
	case ParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}
