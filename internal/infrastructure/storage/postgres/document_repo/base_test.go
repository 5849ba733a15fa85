package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain"
	"konditer/internal/domain/documents"
)

func TestFiltered_WarehouseMatchesEitherSide(t *testing.T) {
	repo := NewTransferRepo(nil)
	wh := id.New()

	sql, args, err := repo.filtered(documents.ListFilter{WarehouseID: &wh}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM doc_transfers WHERE (source_warehouse_id = $1 OR destination_warehouse_id = $2)")
	// uuid.UUID is a driver.Valuer, squirrel binds its string form
	assert.Equal(t, []any{wh.String(), wh.String()}, args)
}

func TestFiltered_StatusAndDates(t *testing.T) {
	repo := NewPurchaseRepo(nil)
	status := entity.StatusConfirmed
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	sql, args, err := repo.filtered(documents.ListFilter{
		ListFilter: domain.ListFilter{Search: "P-2026"},
		Status:     &status,
		DateFrom:   &from,
		DateTo:     &to,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "number ILIKE $1 AND status = $2 AND date >= $3 AND date <= $4")
	assert.Equal(t, []any{"%P-2026%", status, from, to}, args)
}

func TestParseOrderBy_Documents(t *testing.T) {
	repo := NewProductionRepo(nil)

	got, err := repo.parseOrderBy("")
	require.NoError(t, err)
	assert.Equal(t, "date DESC", got)

	got, err = repo.parseOrderBy("-current_stage")
	require.NoError(t, err)
	assert.Equal(t, "current_stage DESC", got)

	_, err = repo.parseOrderBy("lines")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestProductionRepo_Columns(t *testing.T) {
	repo := NewProductionRepo(nil)

	assert.Contains(t, repo.selectCols, "recipe_id")
	assert.Contains(t, repo.selectCols, "max_stage")
	assert.NotContains(t, repo.selectCols, "stages")
	require.Len(t, repo.children, 2)
	assert.Equal(t, "doc_production_lines", repo.children[0].Table)
	assert.Equal(t, "doc_production_stages", repo.children[1].Table)
}
