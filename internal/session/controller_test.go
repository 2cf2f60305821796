package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/llm"
	"github.com/sant0-9/narrator/internal/persona"
	"github.com/sant0-9/narrator/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testKey = "AIzaSyTESTKEY1234567890"

type fakeClient struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}

	mu       sync.Mutex
	response string
	err      error
	prompts  []string
	panicMsg string
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Generate(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.response, f.err
}

func (f *fakeClient) Ping(ctx context.Context, apiKey, model string) error { return nil }

func testData() ([]pipeline.FieldMeta, []pipeline.Row) {
	fields := []pipeline.FieldMeta{
		{Name: "t", DisplayLabel: "Time"},
		{Name: "e", DisplayLabel: "Event"},
	}
	rows := []pipeline.Row{
		{"t": "00:01", "e": "spawn"},
		{"t": "00:09", "e": "boss defeated"},
	}
	return fields, rows
}

func newController(t *testing.T, client llm.Client, key string) *Controller {
	t.Helper()
	c := New(Options{Client: client, Logger: zaptest.NewLogger(t)})
	cfg := config.DefaultConfig()
	cfg.APIKey = config.Secret(key)
	c.SetConfig(cfg)
	c.SetData(testData())
	return c
}

func TestGenerateSuccess(t *testing.T) {
	client := &fakeClient{response: "```json\n{\"overview\":\"A close match.\",\"metrics\":[{\"label\":\"Kills\",\"value\":3}],\"timeline\":\"### Start\\n**Spawn** at dawn\"}\n```"}
	c := newController(t, client, testKey)

	v, err := c.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDisplaying, v.State)
	assert.Equal(t, "A close match.", v.Overview)
	assert.Equal(t, []pipeline.Metric{{Label: "Kills", Value: "3"}}, v.Metrics)
	assert.Equal(t, "<h3>Start</h3><strong>Spawn</strong> at dawn", v.Timeline)
	assert.Nil(t, v.Failure)
	assert.NotEmpty(t, v.RequestID)
	assert.Equal(t, config.DefaultModel, v.Model)
	assert.Equal(t, 2, v.RowCount)
	assert.False(t, v.Truncated)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestStartWhileLoadingIsIgnored(t *testing.T) {
	client := &fakeClient{
		response: `{"overview":"ok","metrics":[],"timeline":""}`,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	c := newController(t, client, testKey)

	require.NoError(t, c.Start(context.Background()))
	<-client.entered

	assert.Equal(t, StateLoading, c.View().State)
	assert.ErrorIs(t, c.Start(context.Background()), ErrBusy)
	_, err := c.Generate(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(client.release)
	c.Wait()

	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, StateDisplaying, c.View().State)
}

func TestMissingAPIKeyNeverCallsClient(t *testing.T) {
	client := &fakeClient{}
	c := newController(t, client, "")

	err := c.Start(context.Background())

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, int32(0), client.calls.Load())

	v := c.View()
	assert.Equal(t, StateIdle, v.State)
	require.NotNil(t, v.Failure)
	assert.Equal(t, FailureConfiguration, v.Failure.Kind)
}

func TestNoDataNeverCallsClient(t *testing.T) {
	client := &fakeClient{}
	c := newController(t, client, testKey)
	c.SetData(nil, nil)

	_, err := c.Generate(context.Background())

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, reasonNoData, cfgErr.Reason)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestErrorOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		err        error
		wantKind   FailureKind
		wantStatus int
		wantRaw    string
	}{
		{
			name:     "empty response",
			err:      llm.ErrEmptyResponse,
			wantKind: FailureEmptyResponse,
		},
		{
			name:       "status error",
			err:        &llm.StatusError{Code: 403, Status: "403 Forbidden", Body: "denied"},
			wantKind:   FailureTransport,
			wantStatus: 403,
		},
		{
			name:     "network error",
			err:      errors.New("dial tcp: connection refused"),
			wantKind: FailureTransport,
		},
		{
			name:     "parse error",
			response: "not json",
			wantKind: FailureParse,
			wantRaw:  "not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{response: tt.response, err: tt.err}
			c := newController(t, client, testKey)

			v, err := c.Generate(context.Background())
			require.NoError(t, err)

			assert.Equal(t, StateError, v.State)
			require.NotNil(t, v.Failure)
			assert.Equal(t, tt.wantKind, v.Failure.Kind)
			assert.Equal(t, tt.wantStatus, v.Failure.StatusCode)
			assert.Equal(t, tt.wantRaw, v.Failure.RawText)
			assert.NotEmpty(t, v.Failure.Message)
		})
	}
}

func TestEmptyResponseMessage(t *testing.T) {
	c := newController(t, &fakeClient{err: llm.ErrEmptyResponse}, testKey)

	v, err := c.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EmptyResponseMessage, v.Failure.Message)
}

func TestFailureMessageNeverContainsKey(t *testing.T) {
	client := &fakeClient{err: errors.New(`Post "https://example.test/models/m:generateContent?key=` + testKey + `": timeout`)}
	c := newController(t, client, testKey)

	v, err := c.Generate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, v.Failure)
	assert.NotContains(t, v.Failure.Message, testKey)
}

func TestPanicBecomesError(t *testing.T) {
	c := newController(t, &fakeClient{panicMsg: "boom"}, testKey)

	v, err := c.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateError, v.State)
	assert.Contains(t, v.Failure.Message, "boom")
}

func TestRetriggerFromError(t *testing.T) {
	client := &fakeClient{err: llm.ErrEmptyResponse}
	c := newController(t, client, testKey)

	v, _ := c.Generate(context.Background())
	require.Equal(t, StateError, v.State)

	client.err = nil
	client.response = `{"overview":"second try"}`
	v, err := c.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDisplaying, v.State)
	assert.Equal(t, "second try", v.Overview)
	assert.Equal(t, pipeline.DefaultTimeline, v.Timeline)
	assert.Nil(t, v.Failure)
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestSubscribeSeesLoadingThenResult(t *testing.T) {
	client := &fakeClient{response: `{"overview":"x"}`}
	c := newController(t, client, testKey)

	var mu sync.Mutex
	var states []State
	unsubscribe := c.Subscribe(func(v View) {
		mu.Lock()
		states = append(states, v.State)
		mu.Unlock()
	})
	defer unsubscribe()

	_, err := c.Generate(context.Background())
	require.NoError(t, err)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, StateLoading, states[0])
	assert.Equal(t, StateDisplaying, states[len(states)-1])
}

func TestConfigChangeDuringLoadingNeverResurrectsLoading(t *testing.T) {
	client := &fakeClient{
		response: `{"overview":"done"}`,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	c := newController(t, client, testKey)

	var (
		mu        sync.Mutex
		delivered []View
		reloading atomic.Bool
		once      sync.Once
	)
	held := make(chan struct{})
	hold := make(chan struct{})
	unsubscribe := c.Subscribe(func(v View) {
		// Stall the first loading snapshot seen after the reload.
		if reloading.Load() && v.State == StateLoading {
			once.Do(func() {
				close(held)
				<-hold
			})
		}
		mu.Lock()
		delivered = append(delivered, v)
		mu.Unlock()
	})
	defer unsubscribe()

	lastDelivered := func() View {
		mu.Lock()
		defer mu.Unlock()
		if len(delivered) == 0 {
			return View{}
		}
		return delivered[len(delivered)-1]
	}

	require.NoError(t, c.Start(context.Background()))
	<-client.entered
	require.Eventually(t, func() bool {
		return lastDelivered().Seq == c.View().Seq
	}, time.Second, time.Millisecond)

	reloading.Store(true)
	cfg := config.DefaultConfig()
	cfg.APIKey = config.Secret(testKey)
	cfg.Model = "gemini-2.5-flash"
	c.SetConfig(cfg)
	<-held

	close(client.release)
	require.Eventually(t, func() bool {
		return c.View().State == StateDisplaying
	}, time.Second, time.Millisecond)
	close(hold)
	c.Wait()

	assert.Equal(t, StateDisplaying, c.View().State)
	assert.Equal(t, StateDisplaying, lastDelivered().State)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(delivered); i++ {
		assert.Greater(t, delivered[i].Seq, delivered[i-1].Seq)
	}
}

func TestSnapshotsAreNumbered(t *testing.T) {
	c := newController(t, &fakeClient{response: `{"overview":"x"}`}, testKey)
	before := c.View().Seq

	v, err := c.Generate(context.Background())
	require.NoError(t, err)
	assert.Greater(t, v.Seq, before)
	assert.Equal(t, v.Seq, c.View().Seq)
}

func TestPersonaResolution(t *testing.T) {
	lib := persona.NewLibrary(t.TempDir())

	tests := []struct {
		name        string
		inline      string
		personaName string
		want        string
	}{
		{"inline wins", "You are a sports commentator.", "chronarch", "You are a sports commentator."},
		{"named persona", "", "chronarch", lib.Get("chronarch").Body},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{response: `{"overview":"x"}`}
			c := New(Options{Client: client, Personas: lib})
			cfg := config.DefaultConfig()
			cfg.APIKey = testKey
			cfg.Persona = tt.inline
			cfg.PersonaName = tt.personaName
			c.SetConfig(cfg)
			c.SetData(testData())

			_, err := c.Generate(context.Background())
			require.NoError(t, err)
			require.Len(t, client.prompts, 1)
			assert.Contains(t, client.prompts[0], tt.want)
		})
	}
}

func TestTruncationReported(t *testing.T) {
	fields, _ := testData()
	rows := make([]pipeline.Row, 12)
	for i := range rows {
		rows[i] = pipeline.Row{"t": i, "e": "tick"}
	}

	c := New(Options{Client: &fakeClient{response: `{}`}})
	cfg := config.DefaultConfig()
	cfg.APIKey = testKey
	cfg.MaxRows = 10
	c.SetConfig(cfg)
	c.SetData(fields, rows)

	assert.True(t, c.View().Truncated)
	v, err := c.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Truncated)
	assert.Equal(t, 12, v.RowCount)
}

func TestStateMarshalText(t *testing.T) {
	b, err := StateLoading.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "loading", string(b))
}
