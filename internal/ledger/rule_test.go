package ledger

import (
	"testing"

	"granja-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func adjustment(kind models.LedgerKind, mode models.LedgerMode, qty string) Adjustment {
	return Adjustment{Event: Event{Kind: kind, Quantity: d(qty)}, Mode: mode}
}

func TestSign(t *testing.T) {
	assert.Equal(t, int32(1), Sign(models.LedgerKindPurchase, false))
	assert.Equal(t, int32(1), Sign(models.LedgerKindProduction, false))
	assert.Equal(t, int32(1), Sign(models.LedgerKindOpening, false))
	assert.Equal(t, int32(-1), Sign(models.LedgerKindSale, true))
	assert.Equal(t, int32(1), Sign(models.LedgerKindAdjustment, true))
	assert.Equal(t, int32(-1), Sign(models.LedgerKindAdjustment, false))
}

func TestPlanAdjustment(t *testing.T) {
	tests := []struct {
		name    string
		current string
		adj     Adjustment
		delta   string
		after   string
		wantErr error
	}{
		{
			name:    "purchase adds",
			current: "100",
			adj:     adjustment(models.LedgerKindPurchase, models.LedgerModeApply, "50"),
			delta:   "50",
			after:   "150",
		},
		{
			name:    "sale subtracts",
			current: "150",
			adj:     adjustment(models.LedgerKindSale, models.LedgerModeApply, "30"),
			delta:   "-30",
			after:   "120",
		},
		{
			name:    "sale of exactly the stock",
			current: "12",
			adj:     adjustment(models.LedgerKindSale, models.LedgerModeApply, "12"),
			delta:   "-12",
			after:   "0",
		},
		{
			name:    "sale above stock",
			current: "120",
			adj:     adjustment(models.LedgerKindSale, models.LedgerModeApply, "200"),
			wantErr: ErrInsufficientStock,
		},
		{
			name:    "outbound adjustment above stock",
			current: "3",
			adj:     adjustment(models.LedgerKindAdjustment, models.LedgerModeApply, "4"),
			wantErr: ErrInsufficientStock,
		},
		{
			name:    "zero quantity",
			current: "10",
			adj:     adjustment(models.LedgerKindPurchase, models.LedgerModeApply, "0"),
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "negative quantity",
			current: "10",
			adj:     adjustment(models.LedgerKindSale, models.LedgerModeApply, "-1"),
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "delete purchase",
			current: "50",
			adj:     adjustment(models.LedgerKindPurchase, models.LedgerModeReverse, "10"),
			delta:   "-10",
			after:   "40",
		},
		{
			name:    "delete purchase clamps at zero",
			current: "4",
			adj:     adjustment(models.LedgerKindPurchase, models.LedgerModeReverse, "10"),
			delta:   "-4",
			after:   "0",
		},
		{
			name:    "delete sale restores stock",
			current: "4",
			adj:     adjustment(models.LedgerKindSale, models.LedgerModeReverse, "10"),
			delta:   "10",
			after:   "14",
		},
		{
			name:    "fractional quantities",
			current: "2.5",
			adj:     adjustment(models.LedgerKindPurchase, models.LedgerModeApply, "0.25"),
			delta:   "0.25",
			after:   "2.75",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanAdjustment(d(tt.current), tt.adj)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, d(tt.current).Equal(plan.Before))
			assert.True(t, d(tt.delta).Equal(plan.Delta), "delta %s", plan.Delta)
			assert.True(t, d(tt.after).Equal(plan.After), "after %s", plan.After)
		})
	}
}

func TestPlanAdjustmentEdit(t *testing.T) {
	edit := func(kind models.LedgerKind, prev, qty string) Adjustment {
		adj := adjustment(kind, models.LedgerModeEdit, qty)
		adj.PreviousQuantity = d(prev)
		return adj
	}

	plan, err := PlanAdjustment(d("20"), edit(models.LedgerKindPurchase, "10", "15"))
	require.NoError(t, err)
	assert.True(t, d("5").Equal(plan.Delta))
	assert.True(t, d("25").Equal(plan.After))

	plan, err = PlanAdjustment(d("20"), edit(models.LedgerKindSale, "10", "15"))
	require.NoError(t, err)
	assert.True(t, d("-5").Equal(plan.Delta))
	assert.True(t, d("15").Equal(plan.After))

	plan, err = PlanAdjustment(d("20"), edit(models.LedgerKindSale, "10", "4"))
	require.NoError(t, err)
	assert.True(t, d("26").Equal(plan.After))

	_, err = PlanAdjustment(d("3"), edit(models.LedgerKindPurchase, "10", "2"))
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = PlanAdjustment(d("3"), edit(models.LedgerKindPurchase, "0", "2"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPlanAdjustmentUnknownMode(t *testing.T) {
	_, err := PlanAdjustment(d("3"), adjustment(models.LedgerKindPurchase, "merge", "1"))
	assert.Error(t, err)
}

// Reversing an applied event returns to the starting stock whenever no clamp happened.
func TestApplyThenReverseIsIdentity(t *testing.T) {
	kinds := []models.LedgerKind{models.LedgerKindPurchase, models.LedgerKindProduction, models.LedgerKindSale}
	for _, kind := range kinds {
		start := d("40")
		applied, err := PlanAdjustment(start, adjustment(kind, models.LedgerModeApply, "7.5"))
		require.NoError(t, err)
		reversed, err := PlanAdjustment(applied.After, adjustment(kind, models.LedgerModeReverse, "7.5"))
		require.NoError(t, err)
		assert.True(t, start.Equal(reversed.After), "kind %s", kind)
	}
}

func TestFold(t *testing.T) {
	events := []models.LedgerEvent{
		{Delta: d("100")},
		{Delta: d("50")},
		{Delta: d("-30")},
		{Delta: d("-50")},
	}
	assert.True(t, d("70").Equal(Fold(events)))
	assert.True(t, Fold(nil).IsZero())
}
