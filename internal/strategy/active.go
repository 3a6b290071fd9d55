package strategy

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Turbo503/EchoNode/internal/model"
)

// ActiveModel holds the currently active predictor and guards the reference
// so the retrain pipeline can swap it atomically while decision cycles read
// it. It also enforces the fail-safe contract: a predictor fault maps to a
// FLAT decision plus a reported error, never to a panic reaching order
// submission.
type ActiveModel struct {
	mu      sync.RWMutex
	current Predictor
}

// NewActiveModel starts with the given predictor, typically the placeholder.
func NewActiveModel(initial Predictor) *ActiveModel {
	return &ActiveModel{current: initial}
}

// Name reports the active predictor's name.
func (a *ActiveModel) Name() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current.Name()
}

// Swap atomically replaces the active predictor and returns the previous one.
func (a *ActiveModel) Swap(next Predictor) Predictor {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.current
	a.current = next
	log.Printf("[INFO] active model swapped: %s -> %s", prev.Name(), next.Name())
	return prev
}

// Predict runs the active predictor. Any internal fault, including a panic,
// yields (FLAT, ErrModelFault-wrapped error).
func (a *ActiveModel) Predict(vec model.FeatureVector) (decision model.Decision, err error) {
	a.mu.RLock()
	p := a.current
	a.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			decision = model.Flat
			err = fmt.Errorf("%w: predictor %s panicked: %v", ErrModelFault, p.Name(), r)
		}
	}()

	decision, err = p.Predict(vec)
	if err != nil {
		if errors.Is(err, ErrModelFault) {
			return model.Flat, err
		}
		return model.Flat, fmt.Errorf("%w: %v", ErrModelFault, err)
	}
	if !decision.Valid() {
		return model.Flat, fmt.Errorf("%w: predictor %s returned %q", ErrModelFault, p.Name(), decision)
	}
	return decision, nil
}
