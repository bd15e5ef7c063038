package ledger

import (
	"context"
	"errors"
	"strings"

	"granja-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository reads and writes supply items and their ledger events.
// Bind it to a transaction with NewRepository(tx) so both land together.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.SupplyItem, error) {
	var item models.SupplyItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByNameContains prefers a case-insensitive exact name and otherwise
// returns the lowest id whose name contains fragment. "huevo" matches both
// "huevo blanco" and "huevo orgánico"; the older item wins.
//
// Matching runs in Go with Unicode case folding; LOWER on SQLite is ASCII-only.
func (r *Repository) FindByNameContains(ctx context.Context, fragment string) (*models.SupplyItem, error) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil, ErrItemNotFound
	}

	var items []models.SupplyItem
	if err := r.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}

	var partial *models.SupplyItem
	for i := range items {
		name := strings.ToLower(strings.TrimSpace(items[i].Name))
		if name == fragment {
			return &items[i], nil
		}
		if partial == nil && strings.Contains(name, fragment) {
			partial = &items[i]
		}
	}
	if partial == nil {
		return nil, ErrItemNotFound
	}
	return partial, nil
}

func (r *Repository) Create(ctx context.Context, item *models.SupplyItem) error {
	item.ID = 0
	item.Version = 1
	return r.db.WithContext(ctx).Create(item).Error
}

// SetQuantity overwrites the quantity only if nobody wrote since expectedVersion was read.
func (r *Repository) SetQuantity(ctx context.Context, id uint, expectedVersion uint, quantity decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.SupplyItem{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"quantity_on_hand": quantity,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *Repository) AppendEvent(ctx context.Context, ev *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// Events returns an item's ledger in the order it was written.
func (r *Repository) Events(ctx context.Context, itemID uint) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("supply_item_id = ?", itemID).
		Order("id asc").
		Find(&events).Error
	return events, err
}

// LastEventFor finds the latest event written for a business record, if any.
func (r *Repository) LastEventFor(ctx context.Context, sourceType string, sourceID uint) (*models.LedgerEvent, error) {
	var ev models.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("id desc").
		First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}
