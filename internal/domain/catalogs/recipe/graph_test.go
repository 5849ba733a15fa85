package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
)

func recipeFor(output id.ID, inputs ...id.ID) *Recipe {
	r := NewRecipe("", "r", output, types.NewQuantity(1))
	for _, in := range inputs {
		r.AddItem(in, types.NewQuantity(1))
	}
	return r
}

func TestValidateAcyclic_AcceptsTree(t *testing.T) {
	flour, sugar, dough, cake := id.New(), id.New(), id.New(), id.New()
	active := []*Recipe{recipeFor(dough, flour, sugar)}

	assert.NoError(t, ValidateAcyclic(recipeFor(cake, dough, sugar), active))
}

func TestValidateAcyclic_RejectsTransitiveCycle(t *testing.T) {
	a, b, c := id.New(), id.New(), id.New()
	active := []*Recipe{
		recipeFor(b, c),
		recipeFor(c, a),
	}

	err := ValidateAcyclic(recipeFor(a, b), active)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRecipeCycle, appErr.Code)
	path := appErr.Details["path"].([]string)
	assert.Equal(t, a.String(), path[0])
	assert.Equal(t, a.String(), path[len(path)-1])
}

func TestValidateAcyclic_CandidateReplacesStoredVersion(t *testing.T) {
	a, b := id.New(), id.New()
	stored := recipeFor(b, a)
	active := []*Recipe{stored, recipeFor(a, id.New())}

	// b no longer consumes a, so a -> b is fine
	edited := recipeFor(b, id.New())
	edited.ID = stored.ID
	assert.NoError(t, ValidateAcyclic(edited, active[1:]))
	assert.NoError(t, ValidateAcyclic(recipeFor(a, b), []*Recipe{edited}))
}

func TestRecipe_ValidateStages(t *testing.T) {
	r := recipeFor(id.New(), id.New())
	r.AddStage("syrup")
	r.AddStage("cutting")
	require.NoError(t, r.Validate(t.Context()))
	assert.Equal(t, 2, r.MaxStage())

	r.Stages[1].Number = 3
	err := r.Validate(t.Context())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecipe_DefaultMaxStage(t *testing.T) {
	assert.Equal(t, DefaultStageCount, recipeFor(id.New(), id.New()).MaxStage())
}

func TestRecipe_ValidateRejectsSelfConsumption(t *testing.T) {
	out := id.New()
	err := recipeFor(out, out).Validate(t.Context())
	assert.True(t, apperror.HasCode(err, apperror.CodeRecipeCycle))
}
