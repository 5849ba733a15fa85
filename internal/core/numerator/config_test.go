package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"konditer/internal/core/entity"
)

func TestFormat_DailyDocumentNumbers(t *testing.T) {
	day := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "PR-20261015-001", Format(ForDocument(entity.DocumentTypeProduction), day, 1))
	assert.Equal(t, "P-20261015-0012", Format(ForDocument(entity.DocumentTypePurchase), day, 12))
	assert.Equal(t, "OT-20261015-0003", Format(ForDocument(entity.DocumentTypeTransfer), day, 3))
}

func TestSequenceKey_ResetsDaily(t *testing.T) {
	cfg := ForDocument(entity.DocumentTypeSale)
	d1 := time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)
	d2 := d1.Add(2 * time.Minute)

	assert.NotEqual(t, SequenceKey(cfg, d1), SequenceKey(cfg, d2))
	assert.Equal(t, "S:20261015", SequenceKey(cfg, d1))
	assert.Equal(t, SequenceKey(cfg, d1), SequenceKey(cfg, d1.Add(-time.Hour)))
}
