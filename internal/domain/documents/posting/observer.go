package posting

import "time"

// Outcome labels for Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Observer receives one call per finished transition.
type Observer interface {
	ObserveTransition(docType, operation, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(string, string, string, time.Duration) {}
