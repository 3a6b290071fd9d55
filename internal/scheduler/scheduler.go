package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Turbo503/EchoNode/internal/collector"
	"github.com/Turbo503/EchoNode/internal/feature"
	"github.com/Turbo503/EchoNode/internal/notifier"
	"github.com/Turbo503/EchoNode/internal/position"
	"github.com/Turbo503/EchoNode/internal/recorder"
	"github.com/Turbo503/EchoNode/internal/retrain"
	"github.com/Turbo503/EchoNode/internal/strategy"
)

// Scheduler drives the trading loop: it polls the clock, fires exactly one
// decision cycle per cycle boundary, and launches the weekly retrain on its
// own cadence. Decision cycles run synchronously on the loop goroutine, so a
// stop signal lets an in-flight cycle finish before Run returns.
type Scheduler struct {
	Collector *collector.Collector
	Generator *feature.Generator
	Model     *strategy.ActiveModel
	Position  *position.Manager
	Pipeline  *retrain.Pipeline
	Recorder  recorder.Recorder
	Notifier  notifier.Notifier

	WindowSize int

	cycleMu     *sync.Mutex
	cycle       *boundary
	retrainB    *boundary
	poll        time.Duration
	now         func() time.Time
	retrainWG   sync.WaitGroup
	retrainBusy atomic.Bool
}

// Config holds the scheduler's cadence settings.
type Config struct {
	CycleCron   string        // e.g. "0 * * * *" for the top of every hour
	RetrainCron string        // e.g. "30 2 * * 1" for Monday 02:30
	Poll        time.Duration // clock polling granularity
	WindowSize  int           // candles per decision window
}

// New creates a Scheduler. cycleMu is the lock shared with the retrain
// pipeline: cycles hold it end to end, the pipeline takes it to queue and to
// swap.
func New(cfg Config, cycleMu *sync.Mutex, col *collector.Collector, gen *feature.Generator, mdl *strategy.ActiveModel, pos *position.Manager, pipe *retrain.Pipeline, rec recorder.Recorder, ntf notifier.Notifier) (*Scheduler, error) {
	now := time.Now()
	cycle, err := newBoundary(cfg.CycleCron, now)
	if err != nil {
		return nil, fmt.Errorf("cycle boundary: %w", err)
	}
	retrainB, err := newBoundary(cfg.RetrainCron, now)
	if err != nil {
		return nil, fmt.Errorf("retrain boundary: %w", err)
	}
	poll := cfg.Poll
	if poll <= 0 {
		poll = time.Minute
	}
	return &Scheduler{
		Collector:  col,
		Generator:  gen,
		Model:      mdl,
		Position:   pos,
		Pipeline:   pipe,
		Recorder:   rec,
		Notifier:   ntf,
		WindowSize: cfg.WindowSize,
		cycleMu:    cycleMu,
		cycle:      cycle,
		retrainB:   retrainB,
		poll:       poll,
		now:        time.Now,
	}, nil
}

// Run polls until ctx is cancelled. It returns only after the in-flight
// cycle has finished and any running retrain goroutine has drained.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[INFO] scheduler started, polling every %v", s.poll)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] scheduler stopping, waiting for in-flight work")
			s.retrainWG.Wait()
			log.Println("[INFO] scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checks both boundaries against the current clock.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	if s.cycle.due(now) {
		s.RunDecisionCycle(ctx, now)
	}
	if s.retrainB.due(now) {
		s.launchRetrain(ctx)
	}
}

// RunDecisionCycle executes one full fetch -> feature -> predict -> act
// iteration. Every failure listed in the error taxonomy is recovered here:
// the cycle is logged, recorded, reported, and the loop continues at the
// next boundary.
func (s *Scheduler) RunDecisionCycle(ctx context.Context, boundaryAt time.Time) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	rec := &recorder.CycleRecord{
		Boundary:  boundaryAt,
		Symbol:    s.Collector.Symbol(),
		ModelName: s.Model.Name(),
	}
	defer func() {
		if err := s.Recorder.RecordCycle(rec); err != nil {
			log.Printf("[ERROR] record cycle: %v", err)
		}
	}()

	log.Printf("[INFO] decision cycle firing for boundary %s", boundaryAt.Format(time.RFC3339))

	window, err := s.Collector.Window(ctx, s.WindowSize)
	if err != nil {
		rec.Err = err.Error()
		s.reportError(ctx, "cycle", fmt.Sprintf("data fetch failed: %v", err))
		return
	}
	rec.Close = window.Last().Close

	vec, err := s.Generator.Generate(window)
	if err != nil {
		rec.Err = err.Error()
		if errors.Is(err, feature.ErrInsufficientHistory) {
			log.Printf("[WARN] cycle skipped: %v", err)
		} else {
			s.reportError(ctx, "cycle", fmt.Sprintf("feature generation failed: %v", err))
		}
		return
	}

	decision, err := s.Model.Predict(vec)
	if err != nil {
		// Fail-safe: decision is already FLAT, the cycle continues.
		rec.Err = err.Error()
		s.reportError(ctx, "model", fmt.Sprintf("prediction fault, holding flat: %v", err))
	}
	rec.Decision = decision
	log.Printf("[INFO] decision=%s close=%.2f model=%s", decision, rec.Close, rec.ModelName)

	report, err := s.Position.Apply(ctx, decision)
	if report != nil {
		rec.OrderCount = len(report.Orders)
		for _, o := range report.Orders {
			if recErr := s.Recorder.RecordOrder(&recorder.OrderRecord{
				ClientID:   o.ClientID,
				ExchangeID: o.ExchangeID,
				Symbol:     o.Symbol,
				Side:       o.Side,
				Quantity:   o.Quantity.String(),
				Status:     o.Status,
			}); recErr != nil {
				log.Printf("[ERROR] record order: %v", recErr)
			}
		}
	}
	if err != nil {
		rec.Err = err.Error()
		switch {
		case errors.Is(err, position.ErrOrderRejected):
			s.reportError(ctx, "order", fmt.Sprintf("order rejected, position unchanged: %v", err))
		case errors.Is(err, position.ErrSubmissionFailed):
			s.reportError(ctx, "order", fmt.Sprintf("submission failed, retrying next cycle: %v", err))
		default:
			s.reportError(ctx, "order", fmt.Sprintf("order handling failed: %v", err))
		}
		return
	}
	if report != nil && len(report.Orders) > 0 {
		log.Printf("[INFO] position now %s after %d order(s)", report.State.Side, len(report.Orders))
	}
}

// launchRetrain dispatches one retrain run on its own goroutine. The
// pipeline queues on the cycle lock itself; here we only guard against
// overlapping retrains.
func (s *Scheduler) launchRetrain(ctx context.Context) {
	if !s.retrainBusy.CompareAndSwap(false, true) {
		log.Println("[WARN] retrain boundary hit while a retrain is still running, skipping")
		return
	}
	s.retrainWG.Add(1)
	go func() {
		defer s.retrainWG.Done()
		defer s.retrainBusy.Store(false)
		s.runRetrain(ctx)
	}()
}

func (s *Scheduler) runRetrain(ctx context.Context) {
	log.Println("[INFO] retrain cycle starting")
	result, err := s.Pipeline.Run(ctx)

	rec := &recorder.RetrainRecord{}
	if result != nil {
		rec.Outcome = string(result.Outcome)
		rec.Version = result.Version
		rec.Samples = result.Samples
		rec.Duration = result.Duration
	}
	if err != nil {
		rec.Err = err.Error()
		s.reportError(ctx, "retrain", fmt.Sprintf("retrain failed, previous model kept: %v", err))
	} else {
		log.Printf("[INFO] retrain complete: model v%d active (%d samples)", result.Version, result.Samples)
		if nerr := s.Notifier.Notify(ctx, "info", "retrain",
			fmt.Sprintf("model v%d trained and activated", result.Version)); nerr != nil {
			log.Printf("[ERROR] send notification: %v", nerr)
		}
	}
	if recErr := s.Recorder.RecordRetrain(rec); recErr != nil {
		log.Printf("[ERROR] record retrain: %v", recErr)
	}
}

func (s *Scheduler) reportError(ctx context.Context, source, msg string) {
	log.Printf("[ERROR] %s: %s", source, msg)
	if err := s.Notifier.Notify(ctx, "error", source, msg); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
