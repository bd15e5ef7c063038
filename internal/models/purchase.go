package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase - Compra de insumos a un proveedor
type Purchase struct {
	ID           uint            `gorm:"primaryKey"`
	SupplierID   uint            `gorm:"index;not null"`
	Supplier     Supplier        `gorm:"foreignKey:SupplierID"`
	SupplyItemID uint            `gorm:"index;not null"`
	SupplyItem   SupplyItem      `gorm:"foreignKey:SupplyItemID"`
	Date         time.Time       `gorm:"index;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
