// Package model provides the estimator capability interfaces and shared state handling.
package model

import (
	"sync"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// Estimators embed a *StateManager so that gob encodes the state alongside
// the learned parameters. gob drops an all-zero state, so the read methods
// treat a nil receiver as unfitted.
type StateManager struct {
	Fitted bool // Public for gob encoding
	mu     sync.RWMutex

	NFeatures int
	NSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted and records the training shape.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// NFeaturesIn returns the number of features seen during fitting.
func (s *StateManager) NFeaturesIn() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckPredictInput validates that X has the feature count seen during fitting.
func (s *StateManager) CheckPredictInput(modelName string, nFeatures int) error {
	if err := s.RequireFitted(modelName, "Predict"); err != nil {
		return err
	}
	if want := s.NFeaturesIn(); nFeatures != want {
		return errors.NewDimensionError(modelName+".Predict", want, nFeatures, 1)
	}
	return nil
}
