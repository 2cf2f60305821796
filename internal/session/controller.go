// Package session drives one narrative view: it guards the generation
// trigger, runs the pipeline and turns every outcome into a View.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/llm"
	"github.com/sant0-9/narrator/internal/markup"
	"github.com/sant0-9/narrator/internal/persona"
	"github.com/sant0-9/narrator/internal/pipeline"
	"github.com/sant0-9/narrator/internal/source"
)

// ErrBusy is returned when a generation is already in flight.
var ErrBusy = errors.New("a narrative is already being generated")

// ConfigError reports an unmet precondition detected before any network call.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

const (
	reasonNoAPIKey = "API key is not configured."
	reasonNoData   = "No data rows to analyze."
)

// Options configures a Controller.
type Options struct {
	Client    llm.Client
	Renderer  *markup.Renderer
	Formatter pipeline.CellFormatter
	Personas  *persona.Library
	Logger    *zap.Logger
}

// Controller owns the state machine for a single session.
type Controller struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	view     View
	fields   []pipeline.FieldMeta
	rows     []pipeline.Row
	gen      config.Generation
	persona  string
	maxRows  int
	client   llm.Client
	renderer *markup.Renderer
	format   pipeline.CellFormatter
	personas *persona.Library
	logger   *zap.Logger
	subs     map[int]func(View)
	nextSub  int

	// seq numbers snapshots under mu. Deliveries are queued in seq order
	// and handed to subscribers by a single dispatcher goroutine.
	seq         uint64
	notifyMu    sync.Mutex
	idle        *sync.Cond
	queue       []View
	queued      uint64
	dispatching bool
}

// New creates an idle controller.
func New(opts Options) *Controller {
	c := &Controller{
		client:   opts.Client,
		renderer: opts.Renderer,
		format:   opts.Formatter,
		personas: opts.Personas,
		logger:   opts.Logger,
		maxRows:  pipeline.DefaultMaxRows,
		subs:     make(map[int]func(View)),
	}
	c.idle = sync.NewCond(&c.notifyMu)
	if c.renderer == nil {
		c.renderer = markup.HTML()
	}
	if c.format == nil {
		c.format = source.DisplayFormatter{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// SetData replaces the rows the next generation will use.
func (c *Controller) SetData(fields []pipeline.FieldMeta, rows []pipeline.Row) {
	c.mu.Lock()
	c.fields = fields
	c.rows = rows
	c.view.RowCount = len(rows)
	c.view.Truncated = len(rows) > c.maxRows
	v := c.snapshot()
	c.mu.Unlock()

	c.notify(v)
}

// SetConfig replaces the generation settings. Persona text resolves inline
// first, then the named library persona.
func (c *Controller) SetConfig(cfg *config.Config) {
	gen := cfg.Generation()
	text := gen.Persona
	if c.personas != nil {
		text = c.personas.Resolve(gen.Persona, cfg.PersonaName)
	}

	c.mu.Lock()
	c.gen = gen
	c.persona = text
	if cfg.MaxRows > 0 {
		c.maxRows = cfg.MaxRows
	}
	c.view.Model = gen.ModelName
	c.view.Truncated = len(c.rows) > c.maxRows
	v := c.snapshot()
	c.mu.Unlock()

	c.notify(v)
}

// SetClient swaps the narrative client used by later generations.
func (c *Controller) SetClient(client llm.Client) {
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

// Subscribe registers fn for every view change and returns a function that
// removes it. fn is called outside the controller lock, one snapshot at a
// time, in the order the snapshots were taken. A snapshot older than one
// already queued is dropped.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Start begins a generation in the background. It returns ErrBusy while
// loading and a *ConfigError when the API key or data is missing; in both
// cases no request is made.
func (c *Controller) Start(ctx context.Context) error {
	job, err := c.begin()
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, job)
	}()
	return nil
}

// Generate runs a generation to completion and returns the final view.
func (c *Controller) Generate(ctx context.Context) (View, error) {
	job, err := c.begin()
	if err != nil {
		return c.View(), err
	}
	return c.run(ctx, job), nil
}

// Wait blocks until background generations started by Start have finished
// and every queued snapshot has been delivered.
func (c *Controller) Wait() {
	c.wg.Wait()
	c.notifyMu.Lock()
	for c.dispatching {
		c.idle.Wait()
	}
	c.notifyMu.Unlock()
}

type job struct {
	req      *pipeline.Request
	client   llm.Client
	maxRows  int
	renderer *markup.Renderer
}

func (c *Controller) begin() (*job, error) {
	c.mu.Lock()

	if c.view.State == StateLoading {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	if reason := c.precondition(); reason != "" {
		c.view.Failure = &Failure{Kind: FailureConfiguration, Message: reason}
		v := c.snapshot()
		c.mu.Unlock()

		c.logger.Info("generation not started", zap.String("reason", reason))
		c.notify(v)
		return nil, &ConfigError{Reason: reason}
	}

	j := &job{
		req: &pipeline.Request{
			ID:      uuid.NewString(),
			Fields:  c.fields,
			Rows:    c.rows,
			Persona: c.persona,
			Model:   c.gen.ModelName,
			APIKey:  c.gen.APIKey.Reveal(),
		},
		client:   c.client,
		maxRows:  c.maxRows,
		renderer: c.renderer,
	}

	c.view = View{
		State:     StateLoading,
		RowCount:  len(c.rows),
		Truncated: len(c.rows) > c.maxRows,
		RequestID: j.req.ID,
		Model:     j.req.Model,
	}
	v := c.snapshot()
	c.mu.Unlock()

	c.notify(v)
	return j, nil
}

func (c *Controller) precondition() string {
	if !c.gen.APIKey.IsSet() {
		return reasonNoAPIKey
	}
	if len(c.rows) == 0 {
		return reasonNoData
	}
	if c.client == nil {
		return "No narrative client configured."
	}
	return ""
}

func (c *Controller) run(ctx context.Context, j *job) View {
	p := pipeline.NewPipeline(j.client, c.format, j.maxRows, c.logger)
	p.SetProgressCallback(func(pr pipeline.Progress) {
		c.mu.Lock()
		if c.view.RequestID != j.req.ID {
			c.mu.Unlock()
			return
		}
		c.view.Progress = pr
		v := c.snapshot()
		c.mu.Unlock()
		c.notify(v)
	})

	result := c.execute(ctx, p, j.req)

	c.mu.Lock()
	c.view = c.apply(c.view, result, j)
	v := c.snapshot()
	c.mu.Unlock()

	c.notify(v)
	return v
}

// execute runs the pipeline, converting a panic into a transport outcome.
func (c *Controller) execute(ctx context.Context, p *pipeline.Pipeline, req *pipeline.Request) (result *pipeline.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("pipeline panicked",
				zap.String("request_id", req.ID),
				zap.String("panic", llm.Redact(fmt.Sprint(r), req.APIKey)))
			result = &pipeline.Result{
				Outcome: pipeline.TransportError{Message: fmt.Sprintf("generation aborted: %v", r)},
			}
		}
	}()
	return p.Run(ctx, req)
}

func (c *Controller) apply(v View, result *pipeline.Result, j *job) View {
	key := j.req.APIKey
	v.Duration = result.Duration
	v.Progress = pipeline.Progress{Stage: pipeline.StageDone, StageIndex: int(pipeline.StageDone), TotalStages: pipeline.TotalStages}
	if result.Payload.TotalRows > 0 {
		v.Truncated = result.Payload.Truncated
	}

	switch o := result.Outcome.(type) {
	case pipeline.Success:
		v.State = StateDisplaying
		v.Overview = o.Record.Overview
		v.Metrics = o.Record.Metrics
		v.Timeline = j.renderer.Render(o.Record.Timeline)
		v.Failure = nil
	case pipeline.EmptyResponse:
		v.State = StateError
		v.Failure = &Failure{Kind: FailureEmptyResponse, Message: EmptyResponseMessage}
	case pipeline.TransportError:
		v.State = StateError
		v.Failure = &Failure{
			Kind:       FailureTransport,
			Message:    llm.Redact(transportMessage(o), key),
			StatusCode: o.StatusCode,
		}
	case pipeline.ParseError:
		v.State = StateError
		v.Failure = &Failure{
			Kind:    FailureParse,
			Message: llm.Redact("Failed to parse narrative: "+o.Message, key),
			RawText: llm.Redact(o.RawText, key),
		}
	default:
		v.State = StateError
		v.Failure = &Failure{Kind: FailureTransport, Message: "Unexpected generation result."}
	}
	return v
}

func transportMessage(o pipeline.TransportError) string {
	msg := strings.TrimSpace(o.Message)
	if o.StatusCode == 0 {
		return "Request failed: " + msg
	}
	return msg
}

// snapshot stamps the current view with the next sequence number. Callers
// hold c.mu.
func (c *Controller) snapshot() View {
	c.seq++
	c.view.Seq = c.seq
	return c.view.clone()
}

// notify queues v for delivery unless a newer snapshot is already queued.
func (c *Controller) notify(v View) {
	c.mu.Lock()
	hasSubs := len(c.subs) > 0
	c.mu.Unlock()

	c.notifyMu.Lock()
	if v.Seq <= c.queued {
		c.notifyMu.Unlock()
		return
	}
	c.queued = v.Seq
	if !hasSubs {
		c.notifyMu.Unlock()
		return
	}
	c.queue = append(c.queue, v)
	start := !c.dispatching
	c.dispatching = true
	c.notifyMu.Unlock()

	if start {
		go c.dispatch()
	}
}

// dispatch delivers queued snapshots until the queue is empty.
func (c *Controller) dispatch() {
	for {
		c.notifyMu.Lock()
		if len(c.queue) == 0 {
			c.dispatching = false
			c.idle.Broadcast()
			c.notifyMu.Unlock()
			return
		}
		v := c.queue[0]
		c.queue = c.queue[1:]
		c.notifyMu.Unlock()

		c.mu.Lock()
		subs := make([]func(View), 0, len(c.subs))
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()

		for _, fn := range subs {
			fn(v)
		}
	}
}
