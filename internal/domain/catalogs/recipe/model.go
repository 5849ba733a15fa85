// Package recipe provides bills of materials: which inputs and manufacturing
// stages produce an output item.
package recipe

import (
	"context"
	"sort"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
)

// DefaultStageCount is used when a recipe declares no stages.
const DefaultStageCount = 2

// Recipe describes one batch of an output item.
type Recipe struct {
	entity.BaseCatalog

	OutputItemID id.ID `db:"output_item_id" json:"outputItemId"`

	// OutputQuantity is the number of output units one batch yields
	OutputQuantity types.Quantity `db:"output_quantity" json:"outputQuantity"`

	Items  []Item  `db:"-" json:"items"`
	Stages []Stage `db:"-" json:"stages"`
}

// Item is one input line, expressed per batch.
type Item struct {
	RecipeID id.ID          `db:"recipe_id" json:"-"`
	LineNo   int            `db:"line_no" json:"lineNo"`
	ItemID   id.ID          `db:"item_id" json:"itemId"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
}

// Stage is a named manufacturing step.
type Stage struct {
	RecipeID id.ID  `db:"recipe_id" json:"-"`
	Number   int    `db:"stage_number" json:"number"`
	Name     string `db:"name" json:"name"`
}

// NewRecipe creates an active recipe yielding outputQty units per batch.
func NewRecipe(code, name string, outputItemID id.ID, outputQty types.Quantity) *Recipe {
	return &Recipe{
		BaseCatalog:    entity.NewBaseCatalog(code, name),
		OutputItemID:   outputItemID,
		OutputQuantity: outputQty,
	}
}

// AddItem appends an input line.
func (r *Recipe) AddItem(itemID id.ID, qty types.Quantity) {
	r.Items = append(r.Items, Item{
		RecipeID: r.ID,
		LineNo:   len(r.Items) + 1,
		ItemID:   itemID,
		Quantity: qty,
	})
}

// AddStage appends a stage numbered after the last one.
func (r *Recipe) AddStage(name string) {
	r.Stages = append(r.Stages, Stage{
		RecipeID: r.ID,
		Number:   len(r.Stages) + 1,
		Name:     name,
	})
}

// MaxStage is the highest stage number, or DefaultStageCount for recipes without stages.
func (r *Recipe) MaxStage() int {
	maxStage := 0
	for _, s := range r.Stages {
		if s.Number > maxStage {
			maxStage = s.Number
		}
	}
	if maxStage == 0 {
		return DefaultStageCount
	}
	return maxStage
}

// Validate implements entity.Validatable.
func (r *Recipe) Validate(ctx context.Context) error {
	if err := r.BaseCatalog.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(r.OutputItemID) {
		return apperror.NewValidation("output item is required").WithDetail("field", "outputItemId")
	}
	if !r.OutputQuantity.IsPositive() {
		return apperror.NewValidation("output quantity must be positive").WithDetail("field", "outputQuantity")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("recipe must have at least one item").WithDetail("field", "items")
	}
	for i, line := range r.Items {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").WithLine(i)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").WithLine(i)
		}
		if line.ItemID == r.OutputItemID {
			return apperror.NewRecipeCycle([]string{r.OutputItemID.String(), r.OutputItemID.String()}).WithLine(i)
		}
	}
	return r.validateStages()
}

// validateStages requires stage numbers 1..N without gaps or duplicates.
func (r *Recipe) validateStages() error {
	numbers := make([]int, 0, len(r.Stages))
	for _, s := range r.Stages {
		numbers = append(numbers, s.Number)
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			return apperror.NewValidation("stage numbers must be contiguous starting at 1").
				WithDetail("field", "stages").
				WithDetail("stages", numbers)
		}
	}
	for _, s := range r.Stages {
		if s.Name == "" {
			return apperror.NewValidation("stage name is required").WithDetail("stage", s.Number)
		}
	}
	return nil
}

// normalize sorts lines and stages and stamps the recipe id on children.
func (r *Recipe) normalize() {
	sort.SliceStable(r.Stages, func(i, j int) bool { return r.Stages[i].Number < r.Stages[j].Number })
	for i := range r.Items {
		r.Items[i].RecipeID = r.ID
		r.Items[i].LineNo = i + 1
	}
	for i := range r.Stages {
		r.Stages[i].RecipeID = r.ID
	}
}
