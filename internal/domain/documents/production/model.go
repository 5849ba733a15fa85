// Package production provides production orders: recipe-driven, multi-stage
// manufacturing that consumes inputs from one warehouse and receives the
// output into another.
package production

import (
	"context"
	"fmt"
	"time"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/costing"
	"konditer/internal/domain/documents/posting"
	"konditer/pkg/logger"
)

// Order is a production order for Quantity batches of a recipe.
type Order struct {
	entity.Document

	RecipeID          id.ID `db:"recipe_id" json:"recipeId"`
	OutputItemID      id.ID `db:"output_item_id" json:"outputItemId"`
	SourceWarehouseID id.ID `db:"source_warehouse_id" json:"sourceWarehouseId"`
	OutputWarehouseID id.ID `db:"output_warehouse_id" json:"outputWarehouseId"`

	// Quantity is the number of recipe batches
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// OutputQuantity is the number of output units the order yields
	OutputQuantity types.Quantity `db:"output_quantity" json:"outputQuantity"`

	CurrentStage int `db:"current_stage" json:"currentStage"`
	MaxStage     int `db:"max_stage" json:"maxStage"`

	// Filled on completion
	MaterialCost   types.Money `db:"material_cost" json:"materialCost"`
	OutputUnitCost types.Money `db:"output_unit_cost" json:"outputUnitCost"`
	CompletedAt    *time.Time  `db:"completed_at" json:"completedAt,omitempty"`

	Lines  []Line  `db:"-" json:"lines"`
	Stages []Stage `db:"-" json:"stages"`
}

// Line is one input. Required defaults to the recipe quantity times the
// order quantity; Consumed is what completion actually took.
type Line struct {
	OrderID  id.ID          `db:"order_id" json:"-"`
	LineNo   int            `db:"line_no" json:"lineNo"`
	ItemID   id.ID          `db:"item_id" json:"itemId"`
	Required types.Quantity `db:"required_quantity" json:"requiredQuantity"`
	Consumed types.Quantity `db:"consumed_quantity" json:"consumedQuantity"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`
}

// Stage is the progress of one manufacturing step.
type Stage struct {
	OrderID     id.ID      `db:"order_id" json:"-"`
	Number      int        `db:"stage_number" json:"number"`
	Name        string     `db:"name" json:"name"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	Machine     string     `db:"machine" json:"machine,omitempty"`
	Operator    string     `db:"operator" json:"operator,omitempty"`
}

// NewOrder materializes an order for qty batches of r. maxStage overrides
// the recipe's stage count when positive.
func NewOrder(now time.Time, actor string, r *recipe.Recipe, source, output id.ID, qty types.Quantity, maxStage int) *Order {
	o := &Order{
		Document:          entity.NewDocument(now, actor),
		RecipeID:          r.ID,
		OutputItemID:      r.OutputItemID,
		SourceWarehouseID: source,
		OutputWarehouseID: output,
		Quantity:          qty,
		OutputQuantity:    qty.Mul(r.OutputQuantity),
		CurrentStage:      1,
		MaxStage:          r.MaxStage(),
		MaterialCost:      types.Zero(),
		OutputUnitCost:    types.Zero(),
	}
	if maxStage > 0 {
		o.MaxStage = maxStage
	}

	for _, ri := range r.Items {
		o.Lines = append(o.Lines, Line{
			OrderID:  o.ID,
			LineNo:   len(o.Lines) + 1,
			ItemID:   ri.ItemID,
			Required: ri.Quantity.Mul(qty),
			UnitCost: types.Zero(),
		})
	}

	names := make(map[int]string, len(r.Stages))
	for _, st := range r.Stages {
		names[st.Number] = st.Name
	}
	for n := 1; n <= o.MaxStage; n++ {
		name, ok := names[n]
		if !ok {
			name = fmt.Sprintf("Stage %d", n)
		}
		o.Stages = append(o.Stages, Stage{OrderID: o.ID, Number: n, Name: name})
	}
	return o
}

// SetLines replaces the input lines.
func (o *Order) SetLines(lines []Line) {
	o.Lines = lines
	for i := range o.Lines {
		o.Lines[i].OrderID = o.ID
		o.Lines[i].LineNo = i + 1
		o.Lines[i].Consumed = 0
		o.Lines[i].UnitCost = types.Zero()
	}
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.RecipeID) {
		return apperror.NewValidation("recipe is required").WithDetail("field", "recipeId")
	}
	if id.IsNil(o.SourceWarehouseID) {
		return apperror.NewValidation("source warehouse is required").WithDetail("field", "sourceWarehouseId")
	}
	if id.IsNil(o.OutputWarehouseID) {
		return apperror.NewValidation("output warehouse is required").WithDetail("field", "outputWarehouseId")
	}
	if !o.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	if o.MaxStage < 1 {
		return apperror.NewValidation("order needs at least one stage").WithDetail("field", "maxStage")
	}
	if o.CurrentStage < 1 || o.CurrentStage > o.MaxStage {
		return apperror.NewValidation("current stage out of range").WithDetail("currentStage", o.CurrentStage)
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, line := range o.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").WithLine(i)
		}
		if line.Required.IsNegative() {
			return apperror.NewValidation("required quantity must not be negative").WithLine(i)
		}
	}
	return nil
}

// Stage returns the progress record of stage n.
func (o *Order) Stage(n int) *Stage {
	for i := range o.Stages {
		if o.Stages[i].Number == n {
			return &o.Stages[i]
		}
	}
	o.Stages = append(o.Stages, Stage{OrderID: o.ID, Number: n, Name: fmt.Sprintf("Stage %d", n)})
	return &o.Stages[len(o.Stages)-1]
}

// advance records stage k as complete and moves to k+1.
func (o *Order) advance(k int, now time.Time, machine, operator string) {
	st := o.Stage(k)
	if st.StartedAt == nil {
		st.StartedAt = &now
	}
	st.CompletedAt = &now
	st.Machine = machine
	st.Operator = operator

	if k < o.MaxStage {
		o.CurrentStage = k + 1
		next := o.Stage(k + 1)
		next.StartedAt = &now
	}
}

// resetProgress returns the order to stage 1 with nothing consumed.
func (o *Order) resetProgress() {
	o.CurrentStage = 1
	o.CompletedAt = nil
	o.MaterialCost = types.Zero()
	o.OutputUnitCost = types.Zero()
	for i := range o.Lines {
		o.Lines[i].Consumed = 0
		o.Lines[i].UnitCost = types.Zero()
	}
	for i := range o.Stages {
		o.Stages[i].StartedAt = nil
		o.Stages[i].CompletedAt = nil
		o.Stages[i].Machine = ""
		o.Stages[i].Operator = ""
	}
}

// --- posting.Unpostable ---

func (o *Order) DocumentType() entity.DocumentType { return entity.DocumentTypeProduction }

func (o *Order) AppliedStatus() entity.Status { return entity.StatusCompleted }

func (o *Order) References() []posting.Reference {
	refs := []posting.Reference{
		posting.WarehouseRef(o.SourceWarehouseID),
		posting.WarehouseRef(o.OutputWarehouseID),
		{Entity: posting.EntityItem, ID: o.OutputItemID, Line: -1},
	}
	for i, line := range o.Lines {
		refs = append(refs, posting.ItemRef(line.ItemID, i))
	}
	return refs
}

func (o *Order) BalanceKeys() []entity.BalanceKey {
	keys := make([]entity.BalanceKey, 0, len(o.Lines)+1)
	for _, line := range o.Lines {
		keys = append(keys, entity.BalanceKey{WarehouseID: o.SourceWarehouseID, ItemID: line.ItemID})
	}
	return append(keys, entity.BalanceKey{WarehouseID: o.OutputWarehouseID, ItemID: o.OutputItemID})
}

// Post consumes every input best-effort (never more than the balance holds)
// and receives the output at the material cost per unit. Line unit costs must
// be set before Post is called.
func (o *Order) Post(ctx context.Context, s *posting.Session) error {
	consumed := make([]costing.Consumption, 0, len(o.Lines))
	for i := range o.Lines {
		line := &o.Lines[i]
		b, err := s.Balance(ctx, o.SourceWarehouseID, line.ItemID)
		if err != nil {
			return err
		}
		available := b.Quantity
		if available.IsNegative() {
			available = 0
		}
		actual := types.MinQuantity(line.Required, available)
		if actual < line.Required {
			logger.Warn(ctx, "production input short, consuming what is available",
				"order_id", o.ID,
				"line", i,
				"item_id", line.ItemID,
				"required", line.Required.String(),
				"available", available.String())
		}
		if actual.IsPositive() {
			if _, err := s.Consume(ctx, o.SourceWarehouseID, line.ItemID, actual); err != nil {
				return err
			}
		}
		line.Consumed = actual
		consumed = append(consumed, costing.Consumption{ItemID: line.ItemID, Quantity: actual, UnitCost: line.UnitCost})
	}

	o.MaterialCost, o.OutputUnitCost = costing.ProductionCost(consumed, o.OutputQuantity)
	if o.OutputQuantity.IsPositive() {
		if _, err := s.Receive(ctx, o.OutputWarehouseID, o.OutputItemID, o.OutputQuantity, o.OutputUnitCost); err != nil {
			return err
		}
	}
	now := s.Now()
	o.CompletedAt = &now
	return nil
}

// Unpost removes the output and returns the consumed inputs. It fails when
// the output warehouse no longer holds the produced quantity.
func (o *Order) Unpost(ctx context.Context, s *posting.Session) error {
	out, err := s.Balance(ctx, o.OutputWarehouseID, o.OutputItemID)
	if err != nil {
		return err
	}
	if out.Quantity < o.OutputQuantity {
		return apperror.NewIrreversible(o.OutputWarehouseID.String(), o.OutputItemID.String(),
			o.OutputQuantity.String(), out.Quantity.String())
	}
	if o.OutputQuantity.IsPositive() {
		if _, err := s.Consume(ctx, o.OutputWarehouseID, o.OutputItemID, o.OutputQuantity); err != nil {
			return err
		}
	}
	for _, line := range o.Lines {
		if !line.Consumed.IsPositive() {
			continue
		}
		if _, err := s.Receive(ctx, o.SourceWarehouseID, line.ItemID, line.Consumed, line.UnitCost); err != nil {
			return err
		}
	}
	o.resetProgress()
	return nil
}

var _ posting.Unpostable = (*Order)(nil)
