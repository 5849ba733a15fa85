// Package numerator defines how documents get their human-readable numbers.
package numerator

import (
	"fmt"
	"time"

	"konditer/internal/core/entity"
)

// Config holds numbering configuration for one document type.
type Config struct {
	// Prefix added to all numbers (e.g., "P", "OT")
	Prefix string

	// PadWidth is the minimum width of the sequence part
	PadWidth int
}

// ForDocument returns the date-coded, daily-reset config of a document type.
func ForDocument(t entity.DocumentType) Config {
	return Config{
		Prefix:   t.NumberPrefix(),
		PadWidth: t.NumberPadWidth(),
	}
}

// SequenceKey is the storage key of the counter for cfg on the day of period.
// Sequences restart every day.
func SequenceKey(cfg Config, period time.Time) string {
	return fmt.Sprintf("%s:%s", cfg.Prefix, period.Format("20060102"))
}

// Format renders sequence value seq, e.g. P-20261015-0001.
func Format(cfg Config, period time.Time, seq int64) string {
	width := cfg.PadWidth
	if width <= 0 {
		width = 3
	}
	return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("20060102"), width, seq)
}
