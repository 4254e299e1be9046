// Package model provides state management shared by exhbma estimators.
package model

import (
	"sync"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// StateManager tracks the fitted state of an estimator in a thread-safe
// manner. Estimators hold it by composition rather than embedding so the
// state transition surface stays explicit: Fit is the only operation that
// moves an estimator to the fitted state, Reset the only one back.
type StateManager struct {
	mu     sync.RWMutex
	fitted bool

	nFeatures int
	nSamples  int
}

// NewStateManager creates a StateManager in the un-fitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the estimator has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the estimator as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
}

// Reset returns the estimator to the un-fitted state and clears the
// recorded dimensions.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// SetDimensions records the data dimensions seen during fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// GetDimensions returns the data dimensions seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming the model and method if
// the estimator has not been fitted yet.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
