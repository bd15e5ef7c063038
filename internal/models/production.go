package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Production - Registro de producción por lote (huevos, pollo, gallinaza...)
// SupplyItemID se resuelve una sola vez al crear; ediciones y borrados no vuelven a buscar por nombre.
type Production struct {
	ID           uint            `gorm:"primaryKey"`
	Date         time.Time       `gorm:"index;not null"`
	LotID        uint            `gorm:"index;not null"`
	Lot          Lot             `gorm:"foreignKey:LotID"`
	ProductType  string          `gorm:"size:120;not null;index"`
	SupplyItemID uint            `gorm:"index"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Notes        string          `gorm:"size:500"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
