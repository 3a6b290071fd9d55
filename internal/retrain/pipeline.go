package retrain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Turbo503/EchoNode/internal/feature"
	"github.com/Turbo503/EchoNode/internal/model"
	"github.com/Turbo503/EchoNode/internal/strategy"
)

// ErrValidationFailed means the freshly trained artifact did not pass sanity
// checks. The previously active artifact stays in place.
var ErrValidationFailed = errors.New("retrain validation failed")

// State is the pipeline's visible phase.
type State string

const (
	StateIdle            State = "IDLE"
	StateFetchingHistory State = "FETCHING_HISTORY"
	StateTraining        State = "TRAINING"
	StateValidating      State = "VALIDATING"
	StateSwapped         State = "SWAPPED"
	StateRejected        State = "REJECTED"
)

// WindowSource provides the extended historical window.
type WindowSource interface {
	Window(ctx context.Context, size int) (model.Window, error)
}

// Config tunes the training run.
type Config struct {
	HistoryCandles int     // extended lookback fetched for training
	WindowSize     int     // candles per feature window
	Horizon        int     // candles ahead used for labeling
	LabelThreshold float64 // min absolute forward return to label LONG/SHORT
	Epochs         int
}

// Pipeline rebuilds the decision model from historical data and atomically
// replaces the active artifact. A failed run never leaves the system without
// an active model.
type Pipeline struct {
	source    WindowSource
	generator *feature.Generator
	store     *strategy.ArtifactStore
	active    *strategy.ActiveModel
	cycleLock sync.Locker // serializes against decision cycles; may be nil
	cfg       Config
	now       func() time.Time

	mu    sync.Mutex
	state State
	trace []State // transition history, useful for observability and tests
}

// NewPipeline wires a pipeline. cycleLock is the same lock decision cycles
// hold; the pipeline takes it briefly at start (so a retrain queues behind an
// in-flight cycle) and again for the final swap. Training itself runs
// unlocked so decision cycles keep firing against the pre-retrain model.
func NewPipeline(source WindowSource, generator *feature.Generator, store *strategy.ArtifactStore, active *strategy.ActiveModel, cycleLock sync.Locker, cfg Config) *Pipeline {
	return &Pipeline{
		source:    source,
		generator: generator,
		store:     store,
		active:    active,
		cycleLock: cycleLock,
		cfg:       cfg,
		now:       time.Now,
		state:     StateIdle,
	}
}

// State returns the current phase.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Trace returns the transition history so far.
func (p *Pipeline) Trace() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]State, len(p.trace))
	copy(out, p.trace)
	return out
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.trace = append(p.trace, s)
	p.mu.Unlock()
	log.Printf("[INFO] retrain pipeline: %s", s)
}

// Result describes a completed run.
type Result struct {
	Outcome  State // SWAPPED or REJECTED
	Version  int
	Samples  int
	Duration time.Duration
}

// Run executes one full retrain cycle. On any failure the previous artifact
// remains active and the error is returned for reporting.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.now()

	// Queue behind an in-flight decision cycle before doing anything.
	if p.cycleLock != nil {
		p.cycleLock.Lock()
		p.cycleLock.Unlock()
	}

	p.setState(StateFetchingHistory)
	window, err := p.source.Window(ctx, p.cfg.HistoryCandles)
	if err != nil {
		p.reject()
		return &Result{Outcome: StateRejected, Duration: p.now().Sub(start)}, fmt.Errorf("fetch history: %w", err)
	}

	p.setState(StateTraining)
	samples, err := p.buildSamples(window)
	if err != nil {
		p.reject()
		return &Result{Outcome: StateRejected, Duration: p.now().Sub(start)}, fmt.Errorf("build samples: %w", err)
	}

	version := 1
	if current, ok, err := p.store.LoadCurrent(); err != nil {
		p.reject()
		return &Result{Outcome: StateRejected, Duration: p.now().Sub(start)}, fmt.Errorf("load current artifact: %w", err)
	} else if ok {
		version = current.Version + 1
	}

	artifact := model.ModelArtifact{
		Version:   version,
		TrainedAt: p.now().UTC(),
		Weights:   trainPerceptron(samples, p.cfg.Epochs),
	}

	p.setState(StateValidating)
	linear, err := p.validate(artifact, samples)
	if err != nil {
		p.reject()
		return &Result{Outcome: StateRejected, Version: version, Samples: len(samples), Duration: p.now().Sub(start)}, err
	}

	if err := p.store.Save(artifact); err != nil {
		p.reject()
		return &Result{Outcome: StateRejected, Version: version, Samples: len(samples), Duration: p.now().Sub(start)}, fmt.Errorf("save artifact: %w", err)
	}

	// The swap itself serializes against decision cycles.
	if p.cycleLock != nil {
		p.cycleLock.Lock()
	}
	p.active.Swap(linear)
	if p.cycleLock != nil {
		p.cycleLock.Unlock()
	}

	p.setState(StateSwapped)
	p.setState(StateIdle)
	return &Result{Outcome: StateSwapped, Version: version, Samples: len(samples), Duration: p.now().Sub(start)}, nil
}

func (p *Pipeline) reject() {
	p.setState(StateRejected)
	p.setState(StateIdle)
}

// validate sanity-checks the artifact: loadable finite weights and a
// prediction distribution over the training windows that is not collapsed
// onto a single class.
func (p *Pipeline) validate(artifact model.ModelArtifact, samples []sample) (*strategy.Linear, error) {
	linear, err := strategy.NewLinear(artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no training samples", ErrValidationFailed)
	}

	counts := map[model.Decision]int{}
	for _, s := range samples {
		d, err := linear.Predict(s.features)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		counts[d]++
	}
	if len(counts) < 2 {
		return nil, fmt.Errorf("%w: predictions collapsed to a single class", ErrValidationFailed)
	}
	limit := float64(len(samples)) * 0.97
	for d, n := range counts {
		if float64(n) > limit {
			return nil, fmt.Errorf("%w: class %s dominates with %d/%d predictions", ErrValidationFailed, d, n, len(samples))
		}
	}
	return linear, nil
}
