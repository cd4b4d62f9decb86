package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// RunState is a step of the poem pipeline.
type RunState string

const (
	StateIdle           RunState = "idle"
	StateFetchingSource RunState = "fetching_source"
	StateBuildingIndex  RunState = "building_index"
	StateQuerying       RunState = "querying"
	StateGenerating     RunState = "generating"
	StateDone           RunState = "done"
	StateError          RunState = "error"
)

// Terminal reports whether no further transition can happen.
func (s RunState) Terminal() bool { return s == StateDone || s == StateError }

// Run is the record of one submission.
type Run struct {
	ID         string
	Request    entities.PoemRequest
	State      RunState
	Trace      []RunState
	Neighbors  []entities.Neighbor
	Poem       *entities.GeneratedPoem
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Message is the user-visible outcome line for a failed run.
func (r *Run) Message() string { return entities.UserMessage(r.Err) }

// Defaults for PipelineOptions.
const (
	DefaultTopK            = 5
	DefaultMaxOutputTokens = 200
	DefaultCallTimeout     = 30 * time.Second
)

// PipelineOptions tunes a PoemPipeline.
type PipelineOptions struct {
	TopK            int
	MaxOutputTokens int
	CallTimeout     time.Duration
}

// Components are the adapters a pipeline orchestrates. Source may be nil to
// disable retrieval, in which case Embedder and Indexes are not needed.
type Components struct {
	Source    ports.PoemSource
	Embedder  ports.Embedder
	Indexes   ports.IndexProvider
	Generator ports.Generator
	Prompts   *PromptBuilder
	Events    ports.EventPublisher
}

// PoemPipeline runs fetch → embed → index → query → generate for a request.
// It holds no per-run state, so concurrent Submit calls are independent.
type PoemPipeline struct {
	c      Components
	opts   PipelineOptions
	logger *zap.Logger
	tracer trace.Tracer
	newID  func() string
	now    func() time.Time
}

// NewPoemPipeline validates the wiring and applies option defaults.
func NewPoemPipeline(c Components, opts PipelineOptions, logger *zap.Logger) (*PoemPipeline, error) {
	if c.Generator == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if c.Source != nil && (c.Embedder == nil || c.Indexes == nil) {
		return nil, errors.New("pipeline: retrieval needs an embedder and an index provider")
	}
	if c.Prompts == nil {
		p, err := NewPromptBuilder("")
		if err != nil {
			return nil, err
		}
		c.Prompts = p
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoemPipeline{
		c:      c,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("github.com/0xcro3dile/versecraft/internal/domain/usecases"),
		newID:  uuid.NewString,
		now:    time.Now,
	}, nil
}

// RetrievalEnabled reports whether runs fetch and index sample poems.
func (p *PoemPipeline) RetrievalEnabled() bool { return p.c.Source != nil }

// Submit executes one run to completion. An invalid request or missing
// credential leaves the run Idle and makes no external call. Once started, the
// run ignores cancellation of ctx and always ends Done or Error.
func (p *PoemPipeline) Submit(ctx context.Context, req entities.PoemRequest) *Run {
	req.Theme = strings.TrimSpace(req.Theme)
	run := &Run{
		ID:        p.newID(),
		Request:   req,
		State:     StateIdle,
		Trace:     []RunState{StateIdle},
		StartedAt: p.now(),
	}
	log := p.logger.With(zap.String("run_id", run.ID))

	if err := req.Validate(); err != nil {
		run.Err = err
		log.Info("submission rejected", zap.Error(err))
		return run
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := p.tracer.Start(ctx, "poem.run", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("poem.style", string(req.Style)),
		attribute.String("poem.length", string(req.Length)),
	))
	defer span.End()

	log.Info("run started",
		zap.String("theme", req.Theme),
		zap.String("style", string(req.Style)),
		zap.String("length", string(req.Length)),
		zap.Bool("retrieval", p.RetrievalEnabled()))

	var inspiration []string
	if p.RetrievalEnabled() {
		neighbors, err := p.retrieve(ctx, run, log)
		if err != nil {
			return p.fail(ctx, run, log, span, err)
		}
		run.Neighbors = neighbors
		inspiration = neighborTexts(neighbors)
	}

	p.advance(run, log, StateGenerating)
	prompt, err := p.c.Prompts.Render(req.Theme, req.Style, req.Length, inspiration)
	if err != nil {
		return p.fail(ctx, run, log, span, err)
	}
	text, err := p.generate(ctx, req.Credential, prompt)
	if err != nil {
		return p.fail(ctx, run, log, span, err)
	}

	run.Poem = &entities.GeneratedPoem{Text: text, SourceRequest: req}
	p.advance(run, log, StateDone)
	run.FinishedAt = p.now()
	span.SetStatus(codes.Ok, "")
	log.Info("run finished",
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	p.publish(ctx, run, log)
	return run
}

// retrieve covers FetchingSource → BuildingIndex → Querying. The index lives
// only for this call.
func (p *PoemPipeline) retrieve(ctx context.Context, run *Run, log *zap.Logger) ([]entities.Neighbor, error) {
	req := run.Request

	p.advance(run, log, StateFetchingSource)
	fragments, err := p.fetch(ctx, req.Theme)
	if err != nil {
		return nil, err
	}
	log.Debug("fragments fetched", zap.String("source", p.c.Source.Name()), zap.Int("count", len(fragments)))

	p.advance(run, log, StateBuildingIndex)
	stageCtx, span := p.tracer.Start(ctx, "poem.index")
	index, err := p.c.Indexes.Open(stageCtx)
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("opening %s index: %w", p.c.Indexes.Name(), err)
	}
	defer func() {
		if cerr := index.Close(); cerr != nil {
			log.Warn("closing index", zap.Error(cerr))
		}
	}()

	callCtx, cancel := context.WithTimeout(stageCtx, p.opts.CallTimeout)
	n, err := indexFragments(callCtx, p.c.Embedder, index, req.Credential, fragments)
	cancel()
	span.SetAttributes(attribute.Int("index.entries", n))
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	log.Debug("index built", zap.String("index", p.c.Indexes.Name()), zap.Int("entries", n))

	p.advance(run, log, StateQuerying)
	stageCtx, span = p.tracer.Start(ctx, "poem.query")
	callCtx, cancel = context.WithTimeout(stageCtx, p.opts.CallTimeout)
	neighbors, err := retrieveContext(callCtx, p.c.Embedder, index, req.Credential, req.Theme, p.opts.TopK)
	cancel()
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	log.Debug("neighbors selected", zap.Int("count", len(neighbors)))
	return neighbors, nil
}

func (p *PoemPipeline) fetch(ctx context.Context, theme string) ([]entities.PoemFragment, error) {
	ctx, span := p.tracer.Start(ctx, "poem.fetch")
	ctx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	defer cancel()

	fragments, err := p.c.Source.Fetch(ctx, theme)
	if err == nil && len(fragments) == 0 {
		err = fmt.Errorf("%w: no poems for %q", entities.ErrNotFound, theme)
	}
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		// any source failure reads as "no poems" to the user
		err = fmt.Errorf("%w: %w", entities.ErrNotFound, err)
	}
	span.SetAttributes(attribute.Int("source.fragments", len(fragments)))
	endSpan(span, err)
	return fragments, err
}

func (p *PoemPipeline) generate(ctx context.Context, cred entities.Credential, prompt string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "poem.generate", trace.WithAttributes(
		attribute.Int("generation.max_output_tokens", p.opts.MaxOutputTokens),
	))
	ctx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	defer cancel()

	text, err := p.c.Generator.Generate(ctx, cred, prompt, p.opts.MaxOutputTokens)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", entities.ErrGenerationService, err)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: timed out after %s", entities.ErrGenerationService, p.opts.CallTimeout)
		}
	}
	endSpan(span, err)
	return strings.TrimSpace(text), err
}

func (p *PoemPipeline) advance(run *Run, log *zap.Logger, next RunState) {
	log.Debug("state transition", zap.String("from", string(run.State)), zap.String("to", string(next)))
	run.State = next
	run.Trace = append(run.Trace, next)
}

func (p *PoemPipeline) fail(ctx context.Context, run *Run, log *zap.Logger, span trace.Span, err error) *Run {
	failedIn := run.State
	run.Err = err
	p.advance(run, log, StateError)
	run.FinishedAt = p.now()
	run.Neighbors = nil
	span.RecordError(err)
	span.SetStatus(codes.Error, entities.ErrorCode(err))
	log.Warn("run failed",
		zap.String("stage", string(failedIn)),
		zap.String("code", entities.ErrorCode(err)),
		zap.Error(err))
	p.publish(ctx, run, log)
	return run
}

func (p *PoemPipeline) publish(ctx context.Context, run *Run, log *zap.Logger) {
	if p.c.Events == nil {
		return
	}
	ev := ports.RunEvent{
		RunID:  run.ID,
		Theme:  run.Request.Theme,
		Style:  string(run.Request.Style),
		Length: string(run.Request.Length),
		State:  string(run.State),
	}
	if run.Err != nil {
		ev.Type = "poem.failed"
		ev.Code = entities.ErrorCode(run.Err)
		ev.Message = run.Message()
	} else {
		ev.Type = "poem.generated"
		ev.Chars = len(run.Poem.Text)
	}
	if err := p.c.Events.Publish(ctx, ev); err != nil {
		log.Warn("publishing run event", zap.Error(err))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, entities.ErrorCode(err))
	}
	span.End()
}
