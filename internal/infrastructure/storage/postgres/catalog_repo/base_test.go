package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
	"konditer/internal/domain"
)

func TestFiltered_DefaultsToActive(t *testing.T) {
	repo := NewItemRepo(nil)

	sql, args, err := repo.filtered(domain.ListFilter{}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM cat_items WHERE is_active = $1")
	assert.Equal(t, []any{true}, args)
}

func TestFiltered_SearchAndIDs(t *testing.T) {
	repo := NewWarehouseRepo(nil)
	wanted := []id.ID{id.New(), id.New()}

	sql, args, err := repo.filtered(domain.ListFilter{
		Search:          "cake",
		IDs:             wanted,
		IncludeInactive: true,
	}).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sql, "is_active =")
	assert.Contains(t, sql, "(name ILIKE $1 OR code ILIKE $2)")
	assert.Contains(t, sql, "id IN ($3,$4)")
	assert.Equal(t, "%cake%", args[0])
	assert.Len(t, args, 4)
}

func TestParseOrderBy(t *testing.T) {
	repo := NewRecipeRepo(nil)

	tests := []struct {
		in   string
		want string
	}{
		{"", "name ASC"},
		{"code", "code ASC"},
		{"-name", "name DESC"},
		{"+output_quantity", "output_quantity ASC"},
	}
	for _, tt := range tests {
		got, err := repo.parseOrderBy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := repo.parseOrderBy("name; DROP TABLE cat_recipes")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecipeRepo_ChildTables(t *testing.T) {
	repo := NewRecipeRepo(nil)

	require.Len(t, repo.children, 2)
	assert.Equal(t, "cat_recipe_items", repo.children[0].Table)
	assert.Equal(t, "recipe_id", repo.children[0].FK)
	assert.Equal(t, "stage_number", repo.children[1].Order)
}
