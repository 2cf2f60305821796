package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sant0-9/narrator/internal/llm"
	"github.com/sant0-9/narrator/internal/prompts"
)

type stubClient struct {
	text string
	err  error
	last *llm.GenerateRequest
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Generate(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	s.last = req
	return s.text, s.err
}

func (s *stubClient) Ping(ctx context.Context, apiKey, model string) error { return nil }

func newRequest() *Request {
	return &Request{
		ID:      "req-1",
		Fields:  testFields,
		Rows:    makeRows(3),
		Persona: "You are a referee.",
		Model:   "gemini-test",
		APIKey:  "secret",
	}
}

func TestRunSuccess(t *testing.T) {
	client := &stubClient{text: `{"overview":"o","metrics":[],"timeline":"t"}`}
	p := NewPipeline(client, plain, 10, zaptest.NewLogger(t))

	var stages []Stage
	p.SetProgressCallback(func(pr Progress) {
		assert.Equal(t, TotalStages, pr.TotalStages)
		stages = append(stages, pr.Stage)
	})

	res := p.Run(context.Background(), newRequest())

	require.IsType(t, Success{}, res.Outcome)
	assert.Equal(t, []Stage{StageEncoding, StagePrompting, StageGenerating, StageParsing, StageDone}, stages)

	require.NotNil(t, client.last)
	assert.Equal(t, "gemini-test", client.last.Model)
	assert.Equal(t, "secret", client.last.APIKey)
	assert.Equal(t, res.Prompt, client.last.Prompt)
	assert.True(t, strings.HasPrefix(res.Prompt, "You are a referee."))
	assert.Contains(t, res.Prompt, prompts.DataLogLabel+"\n"+res.Payload.Text())
}

func TestRunMapsClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{
			name: "empty",
			err:  llm.ErrEmptyResponse,
			want: EmptyResponse{},
		},
		{
			name: "wrapped empty",
			err:  errors.Join(errors.New("context"), llm.ErrEmptyResponse),
			want: EmptyResponse{},
		},
		{
			name: "status",
			err:  &llm.StatusError{Code: 429, Status: "Too Many Requests", Body: "slow down"},
			want: TransportError{StatusCode: 429, Message: "API Error: 429 Too Many Requests: slow down"},
		},
		{
			name: "network",
			err:  errors.New("connection reset"),
			want: TransportError{Message: "connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(&stubClient{err: tt.err}, plain, 10, nil)
			res := p.Run(context.Background(), newRequest())
			assert.Equal(t, tt.want, res.Outcome)
		})
	}
}

func TestRunParseError(t *testing.T) {
	p := NewPipeline(&stubClient{text: "The story begins..."}, plain, 10, nil)
	res := p.Run(context.Background(), newRequest())

	pe, ok := res.Outcome.(ParseError)
	require.True(t, ok)
	assert.Equal(t, "The story begins...", pe.RawText)
}

func TestOutcomeKind(t *testing.T) {
	assert.Equal(t, "success", OutcomeKind(Success{}))
	assert.Equal(t, "empty_response", OutcomeKind(EmptyResponse{}))
	assert.Equal(t, "transport_error", OutcomeKind(TransportError{}))
	assert.Equal(t, "parse_error", OutcomeKind(ParseError{}))
	assert.Equal(t, "unknown", OutcomeKind(nil))
}
