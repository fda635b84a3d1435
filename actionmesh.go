// Package actionmesh provides a high-level façade over the action catalog,
// the enrichment pipeline, the orchestrator and the SMS channel adapter.
// Most applications interact with this package by:
//  1. Creating an ActionMesh via New() (or FromConfig) with a store and a model
//  2. Handling inbound SMS (HandleSMS) or chat turns (Turn)
//  3. Executing single actions after an explicit confirmation (ExecuteFunction)
//
// All defaults are safe for local development and testing: an in-memory store,
// the regex intent classifier and a NoOp logger.
package actionmesh

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/actionmesh/actions"
	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/channel/sms"
	"github.com/hupe1980/actionmesh/commitment"
	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/enrichment"
	"github.com/hupe1980/actionmesh/intent"
	"github.com/hupe1980/actionmesh/logging"
	"github.com/hupe1980/actionmesh/model"
	"github.com/hupe1980/actionmesh/orchestrator"
	"github.com/hupe1980/actionmesh/store"
)

// Options configures the ActionMesh instance.
type Options struct {
	// Store (defaults to an in-memory store if not provided)
	Store core.Store
	// Model drives the two-pass tool-calling turn. Required for turns.
	Model model.Model
	// ClassifierModel, when set, classifies SMS intent before the regex
	// fallback.
	ClassifierModel model.Model

	Messenger actions.Messenger
	Calls     actions.CallControl
	// ErrorBuffer holds client-side chat errors (defaults to a RingBuffer).
	ErrorBuffer enrichment.ErrorBuffer
	// PruneInterval is how often a RingBuffer drops expired sessions.
	// Negative disables the pruning loop.
	PruneInterval time.Duration
	// ExtraActions are registered after the built-in actions and replace
	// built-ins of the same name.
	ExtraActions []catalog.Action

	Enrichment   func(o *enrichment.Options)
	Orchestrator func(o *orchestrator.Options)
	Commitment   func(o *commitment.Options)
	SMS          func(o *sms.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	Clock  func() time.Time
}

// ActionMesh is the high-level façade aggregating the wired components.
type ActionMesh struct {
	opts     Options
	catalog  *catalog.Catalog
	pipeline *enrichment.Pipeline
	orch     *orchestrator.Orchestrator
	sms      *sms.Handler
	closers  []io.Closer
	stop     func()
	once     sync.Once
}

// pruner is implemented by error buffers that expire entries in process.
type pruner interface {
	Run(ctx context.Context, every time.Duration)
}

// New wires an ActionMesh. The catalog is sealed before New returns.
func New(optFns ...func(o *Options)) (*ActionMesh, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}
	if opts.ErrorBuffer == nil {
		opts.ErrorBuffer = enrichment.NewRingBuffer(20, 10*time.Minute)
	}
	if opts.PruneInterval == 0 {
		opts.PruneInterval = 5 * time.Minute
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	cat := catalog.New()
	if err := actions.Register(cat, actions.Deps{
		Store:     opts.Store,
		Messenger: opts.Messenger,
		Calls:     opts.Calls,
		Clock:     opts.Clock,
		Logger:    opts.Logger,
	}); err != nil {
		return nil, err
	}
	for _, a := range opts.ExtraActions {
		if err := cat.Register(a); err != nil {
			return nil, err
		}
	}
	cat.Seal()

	pipeline := enrichment.New(opts.Store, func(o *enrichment.Options) {
		o.Errors = opts.ErrorBuffer
		o.Logger = opts.Logger
		if opts.Enrichment != nil {
			opts.Enrichment(o)
		}
	})

	orch := orchestrator.New(cat, pipeline, func(o *orchestrator.Options) {
		o.Logger = opts.Logger
		o.Clock = opts.Clock
		if opts.Orchestrator != nil {
			opts.Orchestrator(o)
		}
	})

	var classifier intent.Classifier = intent.NewRegexClassifier()
	if opts.ClassifierModel != nil {
		classifier = intent.Chain(intent.NewModelClassifier(opts.ClassifierModel), intent.NewRegexClassifier()).WithLogger(opts.Logger)
	}
	detector := commitment.NewDetector(func(o *commitment.Options) {
		o.Clock = opts.Clock
		if opts.Commitment != nil {
			opts.Commitment(o)
		}
	})
	handler := sms.NewHandler(orch, opts.Model, func(o *sms.Options) {
		o.Store = opts.Store
		o.Classifier = classifier
		o.Detector = detector
		o.Logger = opts.Logger
		o.Clock = opts.Clock
		if opts.SMS != nil {
			opts.SMS(o)
		}
	})

	am := &ActionMesh{opts: opts, catalog: cat, pipeline: pipeline, orch: orch, sms: handler}
	if c, ok := opts.Store.(io.Closer); ok {
		am.closers = append(am.closers, c)
	}
	if p, ok := opts.ErrorBuffer.(pruner); ok && opts.PruneInterval > 0 {
		am.stop = startPruning(p, opts.PruneInterval)
	}
	return am, nil
}

func startPruning(p pruner, every time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, every)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Catalog returns the sealed action catalog.
func (am *ActionMesh) Catalog() *catalog.Catalog { return am.catalog }

// Orchestrator returns the orchestrator.
func (am *ActionMesh) Orchestrator() *orchestrator.Orchestrator { return am.orch }

// Store returns the record store.
func (am *ActionMesh) Store() core.Store { return am.opts.Store }

// ErrNoModel is returned when a turn is requested without a configured model.
var ErrNoModel = errors.New("actionmesh: no model configured")

// ErrNoSession is returned when a client error is recorded without a session.
var ErrNoSession = errors.New("actionmesh: empty session id")

// HandleSMS processes one inbound text message.
func (am *ActionMesh) HandleSMS(ctx context.Context, msg sms.InboundMessage) (sms.Reply, error) {
	if am.opts.Model == nil {
		return sms.Reply{}, ErrNoModel
	}
	return am.sms.HandleInbound(ctx, msg), nil
}

// Turn enriches ec and runs one two-pass turn for userText.
func (am *ActionMesh) Turn(ctx context.Context, ec *core.ExecutionContext, userText string, history ...core.Content) (orchestrator.TurnResult, error) {
	if am.opts.Model == nil {
		return orchestrator.TurnResult{}, ErrNoModel
	}
	am.orch.Enrich(ctx, ec)
	return am.orch.RunTurn(ctx, am.opts.Model, orchestrator.TurnRequest{Context: ec, History: history, UserText: userText}), nil
}

// ExecuteFunction runs a single action, e.g. after the user confirmed it.
func (am *ActionMesh) ExecuteFunction(ctx context.Context, name string, args map[string]any, ec *core.ExecutionContext) core.ExecutionResult {
	return am.orch.ExecuteFunction(ctx, name, args, ec)
}

// RecordClientError stores an error the user saw on a chat surface. Chat
// turns whose context carries the same SessionID show it in their error block
// until it expires.
func (am *ActionMesh) RecordClientError(ctx context.Context, sessionID string, e core.PlatformError) error {
	if sessionID == "" {
		return ErrNoSession
	}
	return am.opts.ErrorBuffer.Add(ctx, sessionID, e)
}

// Close stops the pruning loop and releases resources owned by the instance.
// It is safe to call more than once.
func (am *ActionMesh) Close() error {
	var errs []error
	am.once.Do(func() {
		if am.stop != nil {
			am.stop()
		}
		for _, c := range am.closers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}
