package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale - Venta a un cliente
type Sale struct {
	ID           uint            `gorm:"primaryKey"`
	ClientID     uint            `gorm:"index;not null"`
	Client       Client          `gorm:"foreignKey:ClientID"`
	SupplyItemID uint            `gorm:"index;not null"`
	SupplyItem   SupplyItem      `gorm:"foreignKey:SupplyItemID"`
	Date         time.Time       `gorm:"index;not null"`
	Status       string          `gorm:"size:30;not null;index"`
	Description  string          `gorm:"size:255;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Total        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Payment - Pago recibido contra una venta
type Payment struct {
	ID        uint            `gorm:"primaryKey"`
	SaleID    uint            `gorm:"index;not null"`
	Sale      Sale            `gorm:"foreignKey:SaleID"`
	Date      time.Time       `gorm:"index;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Method    string          `gorm:"size:30;not null"`
	Reference string          `gorm:"size:100"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
