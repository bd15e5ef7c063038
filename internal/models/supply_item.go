package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplyItem - Insumo con stock controlado (alimento, vacuna, huevo, pollo...)
// QuantityOnHand solo cambia a través del ledger; Version se incrementa en cada escritura.
type SupplyItem struct {
	ID             uint            `gorm:"primaryKey"`
	Name           string          `gorm:"size:120;not null;index"`
	Type           string          `gorm:"size:60"`
	Unit           string          `gorm:"size:20;not null"` // docena, unidad, kg, L, g
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Version        uint            `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
