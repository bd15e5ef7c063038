package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryMovement - Movimiento manual de inventario (Ingreso, Consumo, Ajuste...)
type InventoryMovement struct {
	ID           uint            `gorm:"primaryKey"`
	SupplyItemID uint            `gorm:"index;not null"`
	SupplyItem   SupplyItem      `gorm:"foreignKey:SupplyItemID"`
	Date         time.Time       `gorm:"index;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Inbound      bool            `gorm:"not null"`
	Reason       string          `gorm:"size:60;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
