// Package costing computes unit costs: the moving average applied on receipt
// and the recursive bill-of-materials cost of semi-finished items.
package costing

import (
	"konditer/internal/core/types"
)

// MovingAverage returns the unit cost after receiving recvQty units at hint.
//
// An empty or cost-less balance takes the incoming cost as is; otherwise the
// result is the quantity-weighted average, rounded to types.CostPrecision.
func MovingAverage(oldQty types.Quantity, oldCost types.Money, recvQty types.Quantity, hint types.Money) types.Money {
	if oldQty <= 0 || !oldCost.IsPositive() {
		return hint
	}
	total := oldQty + recvQty
	if total <= 0 {
		return oldCost
	}
	value := types.Amount(oldCost, oldQty).Add(types.Amount(hint, recvQty))
	return value.Div(total.Decimal()).Round(types.CostPrecision)
}
