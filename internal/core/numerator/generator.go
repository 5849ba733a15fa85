package numerator

import (
	"context"
	"time"
)

// Generator hands out sequential document numbers.
// Implementations live in the storage layer.
type Generator interface {
	// GetNextNumber returns the next number for cfg in the period containing t.
	// Numbers are gapless within a committed transaction.
	GetNextNumber(ctx context.Context, cfg Config, t time.Time) (string, error)
}
