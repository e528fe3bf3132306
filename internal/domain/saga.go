package domain

import "time"

// Saga step states.
const (
	SagaStepPending     = "pending"
	SagaStepCompleted   = "completed"
	SagaStepFailed      = "failed"
	SagaStepCompensated = "compensated"
)

// Checkout saga step names.
const (
	SagaStepPersistOrder = "persist_order"
	SagaStepClearCart    = "clear_cart"
)

// SagaStep tracks one step of the checkout saga.
type SagaStep struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executedAt,omitempty"`
}

// NewSagaStep creates a pending step.
func NewSagaStep(name string) SagaStep {
	return SagaStep{Name: name, Status: SagaStepPending}
}

// Complete marks the step done.
func (s *SagaStep) Complete() {
	s.Status = SagaStepCompleted
	s.ExecutedAt = time.Now().UTC()
}

// Fail records err against the step.
func (s *SagaStep) Fail(err error) {
	s.Status = SagaStepFailed
	s.Error = err.Error()
	s.ExecutedAt = time.Now().UTC()
}

// Compensate marks a completed step as undone.
func (s *SagaStep) Compensate() {
	s.Status = SagaStepCompensated
	s.ExecutedAt = time.Now().UTC()
}
