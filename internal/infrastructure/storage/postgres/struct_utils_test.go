package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/documents/purchase"
)

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[item.Item]()

	for _, expected := range []string{"id", "version", "code", "name", "is_active", "kind", "unit", "purchase_price", "min_stock"} {
		assert.Contains(t, cols, expected)
	}
	assert.Equal(t, "id", cols[0])
}

func TestExtractDBColumns_SkipsLines(t *testing.T) {
	cols := ExtractDBColumns[purchase.Purchase]()

	assert.Contains(t, cols, "number")
	assert.Contains(t, cols, "confirmed_at")
	assert.Contains(t, cols, "total_expenses")
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "lines")
}

func TestStructToMap_Document(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	wh := id.New()
	p := purchase.NewPurchase(now, "u1", wh)
	p.Version = 5
	p.Status = entity.StatusConfirmed
	p.AddLine(id.New(), types.NewQuantity(2), types.MustMoney("3.5"))

	m := StructToMap(p)

	assert.Equal(t, p.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, entity.StatusConfirmed, m["status"])
	assert.Equal(t, wh, m["warehouse_id"])
	assert.Equal(t, "u1", m["created_by"])
	assert.Nil(t, m["confirmed_at"])
	_, hasLines := m["lines"]
	assert.False(t, hasLines)
}

func TestRowValues_Order(t *testing.T) {
	line := purchase.Line{LineNo: 3, ItemID: id.New(), Quantity: types.NewQuantity(4)}

	row := RowValues(line, []string{"line_no", "quantity", "missing"})

	require.Len(t, row, 3)
	assert.Equal(t, 3, row[0])
	assert.Equal(t, types.NewQuantity(4), row[1])
	assert.Nil(t, row[2])
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap((*item.Item)(nil)))
}
