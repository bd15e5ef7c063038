package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerKind string

const (
	LedgerKindOpening    LedgerKind = "opening"
	LedgerKindPurchase   LedgerKind = "purchase"
	LedgerKindProduction LedgerKind = "production"
	LedgerKindSale       LedgerKind = "sale"
	LedgerKindAdjustment LedgerKind = "adjustment"
)

type LedgerMode string

const (
	LedgerModeApply   LedgerMode = "apply"
	LedgerModeEdit    LedgerMode = "edit"
	LedgerModeReverse LedgerMode = "reverse"
)

// LedgerEvent - Movimiento de stock. Nunca se actualiza ni se borra:
// ediciones y eliminaciones se registran como un evento compensatorio nuevo.
type LedgerEvent struct {
	ID            uint            `gorm:"primaryKey"`
	EventID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	SupplyItemID  uint            `gorm:"index;not null"`
	Kind          LedgerKind      `gorm:"size:20;not null"`
	Mode          LedgerMode      `gorm:"size:20;not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,3);not null"` // magnitud del evento
	Delta         decimal.Decimal `gorm:"type:decimal(14,3);not null"` // diferencia con signo aplicada realmente al stock
	StockBefore   decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	StockAfter    decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	SourceType    string          `gorm:"size:40;index:idx_ledger_source"`
	SourceID      *uint           `gorm:"index:idx_ledger_source"`
	CompensatesID *uint
	Reason        string `gorm:"size:255"`
	UserID        *uint
	CreatedAt     time.Time
}
