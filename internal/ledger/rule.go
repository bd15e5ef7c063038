package ledger

import (
	"fmt"

	"granja-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Event is a quantity-changing business action against one supply item.
type Event struct {
	Kind models.LedgerKind

	// SupplyItemID is the structured reference. ProductName is only used
	// when it is zero (production entries typed by hand).
	SupplyItemID uint
	ProductName  string

	Quantity decimal.Decimal
	// Inbound gives the sign of adjustment events; other kinds have a fixed sign.
	Inbound bool

	SourceType string
	SourceID   *uint
	Reason     string
	UserID     *uint
}

// Adjustment is an Event plus how it relates to what was already applied.
type Adjustment struct {
	Event
	Mode models.LedgerMode
	// PreviousQuantity is the quantity the record had before an edit.
	PreviousQuantity decimal.Decimal
}

// Plan is the outcome of the rule for one adjustment.
type Plan struct {
	Before decimal.Decimal
	Delta  decimal.Decimal
	After  decimal.Decimal
}

// Sign returns +1 for events that add stock and -1 for events that remove it.
func Sign(kind models.LedgerKind, inbound bool) int32 {
	switch kind {
	case models.LedgerKindSale:
		return -1
	case models.LedgerKindAdjustment:
		if inbound {
			return 1
		}
		return -1
	default:
		return 1
	}
}

// SignedDelta is the stock change an event causes when applied once.
func SignedDelta(e Event) decimal.Decimal {
	return e.Quantity.Mul(decimal.NewFromInt32(Sign(e.Kind, e.Inbound)))
}

// PlanAdjustment computes the new quantity on hand without touching storage.
//
// Apply adds the signed quantity; outgoing events may not exceed the stock.
// Edit applies only the difference between the new and the previous quantity
// and may not leave the stock negative. Reverse undoes the signed quantity and
// clamps the result at zero; the returned Delta is what was really applied.
func PlanAdjustment(current decimal.Decimal, adj Adjustment) (Plan, error) {
	if !adj.Quantity.IsPositive() {
		return Plan{}, ErrInvalidQuantity
	}

	plan := Plan{Before: current}
	sign := decimal.NewFromInt32(Sign(adj.Kind, adj.Inbound))

	switch adj.Mode {
	case models.LedgerModeApply:
		plan.Delta = adj.Quantity.Mul(sign)
		if sign.IsNegative() && adj.Quantity.GreaterThan(current) {
			return Plan{}, fmt.Errorf("%w: disponible %s, solicitado %s", ErrInsufficientStock, current, adj.Quantity)
		}

	case models.LedgerModeEdit:
		if !adj.PreviousQuantity.IsPositive() {
			return Plan{}, ErrInvalidQuantity
		}
		plan.Delta = adj.Quantity.Sub(adj.PreviousQuantity).Mul(sign)
		if current.Add(plan.Delta).IsNegative() {
			return Plan{}, fmt.Errorf("%w: disponible %s, diferencia %s", ErrInsufficientStock, current, plan.Delta)
		}

	case models.LedgerModeReverse:
		plan.Delta = adj.Quantity.Mul(sign).Neg()
		if plan.Delta.IsNegative() && current.Add(plan.Delta).IsNegative() {
			// nunca dejar stock negativo al borrar; se descuenta solo lo que queda
			plan.Delta = decimal.Max(current, decimal.Zero).Neg()
		}

	default:
		return Plan{}, fmt.Errorf("modo de ajuste desconocido: %q", adj.Mode)
	}

	plan.After = current.Add(plan.Delta)
	return plan, nil
}

// Fold derives the quantity on hand from an item's events.
func Fold(events []models.LedgerEvent) decimal.Decimal {
	total := decimal.Zero
	for _, ev := range events {
		total = total.Add(ev.Delta)
	}
	return total
}
