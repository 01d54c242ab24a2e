package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/action"
	"github.com/quillboard/taskapi/event"
	"github.com/quillboard/taskapi/ext"
	"github.com/quillboard/taskapi/get"
	"github.com/quillboard/taskapi/list"
	mw "github.com/quillboard/taskapi/middleware"
	"github.com/quillboard/taskapi/observability"
	"github.com/quillboard/taskapi/search"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Engine wraps a Gateway with the decoder, executors, middleware chain and
// extension registry. Use Build() to create one.
type Engine struct {
	g          *taskapi.Gateway
	config     taskapi.Config
	decoder    *task.Decoder
	extensions *ext.Registry
	chain      mw.Middleware
	mws        []mw.Middleware
	logger     *slog.Logger

	getExec    *get.Executor
	listExec   *list.Executor
	searchExec *search.Executor
	doExec     *action.Executor

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's chain, after the built-in
// stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the
// global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine from an existing Gateway. The Gateway's store
// must implement the get, list, action and event store interfaces.
func Build(g *taskapi.Gateway, opts ...Option) (*Engine, error) {
	logger := g.Logger()
	store := g.Store()

	if store == nil {
		return nil, taskapi.ErrNoStore
	}

	// Type-assert the store into the per-subsystem interfaces.
	gs, ok := store.(get.Store)
	if !ok {
		return nil, fmt.Errorf("taskapi: store does not implement get.Store")
	}
	ls, ok := store.(list.Store)
	if !ok {
		return nil, fmt.Errorf("taskapi: store does not implement list.Store")
	}
	as, ok := store.(action.Store)
	if !ok {
		return nil, fmt.Errorf("taskapi: store does not implement action.Store")
	}
	es, ok := store.(event.Store)
	if !ok {
		return nil, fmt.Errorf("taskapi: store does not implement event.Store")
	}

	cfg := g.Config()
	eng := &Engine{
		g:          g,
		config:     cfg,
		decoder:    task.NewDecoder(cfg),
		extensions: ext.NewRegistry(logger),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(eng)
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer("github.com/quillboard/taskapi"))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter("github.com/quillboard/taskapi"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/quillboard/taskapi/observability")
		obsExt = observability.NewMetricsExtensionWithMeter(meter)
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Default stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Timeout(cfg.RequestTimeout),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)
	eng.chain = mw.Chain(allMws...)

	// Create the executors.
	eng.getExec = get.New(gs,
		get.WithConcurrency(cfg.Concurrency),
		get.WithLogger(logger),
	)
	eng.listExec = list.New(ls, list.WithLogger(logger))

	if sb, ok := g.Search().(search.Backend); ok {
		eng.searchExec = search.New(sb, search.WithLogger(logger))
	}

	eng.doExec = action.New(as,
		action.WithEvents(es),
		action.WithLimits(action.NewLimits(cfg.ActionRatePerSec, cfg.ActionBurst)),
		action.WithApplied(func(ctx context.Context, ev *thing.Event) {
			eng.extensions.EmitActionApplied(ctx, ev)
		}),
		action.WithLogger(logger),
	)

	return eng, nil
}

// Execute decodes a raw request body and runs it. A non-nil error is a
// request-level failure; convert it with taskapi.AsRequestError.
func (eng *Engine) Execute(ctx context.Context, body []byte) (*Response, error) {
	t, err := eng.decoder.Decode(body)
	if err != nil {
		return nil, err
	}
	return eng.ExecuteTask(ctx, t)
}

// ExecuteTask runs an already-decoded task through the middleware chain.
func (eng *Engine) ExecuteTask(ctx context.Context, t *task.Task) (*Response, error) {
	start := time.Now()
	eng.extensions.EmitTaskStarted(ctx, t)

	var resp *Response
	err := eng.chain(ctx, t, func(ctx context.Context) error {
		var runErr error
		resp, runErr = eng.run(ctx, t)
		return runErr
	})
	if err != nil {
		eng.extensions.EmitTaskFailed(ctx, t, err)
		return nil, err
	}

	eng.extensions.EmitTaskCompleted(ctx, t, time.Since(start))
	return resp, nil
}

// run dispatches on the task variant. Multi-tasks recurse through here for
// each sub-task.
func (eng *Engine) run(ctx context.Context, t *task.Task) (*Response, error) {
	switch {
	case t.Get != nil:
		slots := eng.getExec.Run(ctx, t.Get)
		return &Response{Origin: eng.config.Origin, ThingsOrErrs: slots}, nil

	case t.List != nil:
		res, err := eng.listExec.Run(ctx, t.List)
		if err != nil {
			return nil, err
		}
		return &Response{Origin: eng.config.Origin, ThingsFound: res.Items, Cursor: res.Cursor}, nil

	case t.Search != nil:
		if eng.searchExec == nil {
			return nil, taskapi.Unimplementedf("no search backend configured")
		}
		res, err := eng.searchExec.Run(ctx, t.Search)
		if err != nil {
			return nil, err
		}
		return &Response{Origin: eng.config.Origin, ThingsFound: res.Items, Cursor: res.Cursor}, nil

	case t.Do != nil:
		slots := eng.doExec.Run(ctx, t.Do)
		return &Response{Results: slots}, nil

	case t.Multi != nil:
		return eng.runMulti(ctx, t.Multi), nil
	}

	return nil, taskapi.Internalf("task has no variant")
}

// runMulti fans sub-tasks out with bounded concurrency and merges their
// responses by input position, never by completion order. A sub-task that
// fails occupies its slot with an error envelope; siblings are unaffected.
func (eng *Engine) runMulti(ctx context.Context, mt *task.MultiTask) *Response {
	subs := make([]SubResult, len(mt.Tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(eng.config.Concurrency)
	for i := range mt.Tasks {
		g.Go(func() error {
			r, err := eng.run(gctx, &mt.Tasks[i])
			if err != nil {
				subs[i] = SubResult{Err: taskapi.AsRequestError(err)}
			} else {
				subs[i] = SubResult{Response: r}
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-sub-task errors live in the slots

	return &Response{Queries: subs}
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Gateway returns the underlying Gateway.
func (eng *Engine) Gateway() *taskapi.Gateway { return eng.g }

// Shutdown notifies extensions and closes the gateway's backends.
func (eng *Engine) Shutdown(ctx context.Context) error {
	eng.extensions.EmitShutdown(ctx)
	return eng.g.Close()
}
