package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"granja-backend/internal/metrics"
	"granja-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	provisionedType = "Producto"
	provisionedUnit = "unidad"
)

type Options struct {
	Locker     Locker
	MaxRetries int
	LockTTL    time.Duration
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics
}

// Service applies stock adjustments. Every change is written as an append-only
// LedgerEvent together with a version-checked update of the cached quantity.
type Service struct {
	db         *gorm.DB
	locker     Locker
	maxRetries int
	lockTTL    time.Duration
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{
		db:         db,
		locker:     opts.Locker,
		maxRetries: opts.MaxRetries,
		lockTTL:    opts.LockTTL,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if s.locker == nil {
		s.locker = NopLocker{}
	}
	if s.maxRetries < 1 {
		s.maxRetries = 3
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 10 * time.Second
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	return s
}

// Result describes what an adjustment did.
type Result struct {
	Item        *models.SupplyItem
	Event       *models.LedgerEvent
	Provisioned bool
	// Skipped is set when a reversal targets an item that no longer exists.
	Skipped bool
}

// Execute runs fn in one transaction while holding lockKeys. When a stock
// write loses a version race the transaction is rolled back and fn runs
// again from a fresh read, up to the configured number of attempts.
// Validation and stock errors are returned immediately.
func (s *Service) Execute(ctx context.Context, fn func(tx *gorm.DB) error, lockKeys ...string) error {
	if len(lockKeys) > 0 {
		unlock, err := s.locker.Lock(ctx, lockKeys, s.lockTTL)
		if err != nil {
			return err
		}
		defer unlock()
	}

	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		s.metrics.RecordVersionConflict()
		s.logger.WithFields(logrus.Fields{
			"module":  "ledger",
			"attempt": attempt,
		}).Warn("conflicto de versión en insumo, reintentando")
	}
	return err
}

// Adjust applies one adjustment inside tx.
func (s *Service) Adjust(ctx context.Context, tx *gorm.DB, adj Adjustment) (*Result, error) {
	res, err := s.adjust(ctx, NewRepository(tx), adj)
	s.metrics.RecordAdjustment(string(adj.Kind), string(adj.Mode), outcome(err))
	return res, err
}

func (s *Service) adjust(ctx context.Context, repo *Repository, adj Adjustment) (*Result, error) {
	if !adj.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	item, err := s.resolve(ctx, repo, adj.Event)
	if errors.Is(err, ErrItemNotFound) {
		switch {
		case adj.Kind == models.LedgerKindProduction && adj.Mode == models.LedgerModeApply && adj.SupplyItemID == 0:
			return s.provision(ctx, repo, adj)
		case adj.Mode == models.LedgerModeReverse:
			// el insumo se borró desde su propia pantalla; no hay stock que revertir
			s.logger.WithFields(logrus.Fields{
				"module":         "ledger",
				"kind":           adj.Kind,
				"supply_item_id": adj.SupplyItemID,
				"source_type":    adj.SourceType,
			}).Warn("reversión sin insumo, se omite")
			return &Result{Skipped: true}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	plan, err := PlanAdjustment(item.QuantityOnHand, adj)
	if err != nil {
		return nil, err
	}

	if err := repo.SetQuantity(ctx, item.ID, item.Version, plan.After); err != nil {
		return nil, err
	}

	ev := s.newEvent(adj, item.ID, plan)
	if adj.Mode != models.LedgerModeApply && adj.SourceID != nil {
		prev, err := repo.LastEventFor(ctx, adj.SourceType, *adj.SourceID)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			ev.CompensatesID = &prev.ID
		}
	}
	if err := repo.AppendEvent(ctx, ev); err != nil {
		return nil, err
	}

	item.QuantityOnHand = plan.After
	item.Version++
	return &Result{Item: item, Event: ev}, nil
}

func (s *Service) resolve(ctx context.Context, repo *Repository, e Event) (*models.SupplyItem, error) {
	if e.SupplyItemID != 0 {
		return repo.FindByID(ctx, e.SupplyItemID)
	}
	if strings.TrimSpace(e.ProductName) != "" {
		return repo.FindByNameContains(ctx, e.ProductName)
	}
	return nil, ErrItemNotFound
}

// ResolveItemID returns the item an event would adjust, or 0 when a
// production event names a product that does not exist yet.
func (s *Service) ResolveItemID(ctx context.Context, tx *gorm.DB, e Event) (uint, error) {
	item, err := s.resolve(ctx, NewRepository(tx), e)
	if errors.Is(err, ErrItemNotFound) && e.SupplyItemID == 0 {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return item.ID, nil
}

// Replace moves the stock effect of an edited record from old to updated.
// On the same item with the same direction one edit event carries the
// difference; otherwise old is reversed and updated applied. An updated
// event without an id is resolved by name first.
func (s *Service) Replace(ctx context.Context, tx *gorm.DB, old, updated Event) ([]*Result, error) {
	if updated.SupplyItemID == 0 {
		id, err := s.ResolveItemID(ctx, tx, updated)
		if err != nil {
			return nil, err
		}
		updated.SupplyItemID = id
	}

	if old.SupplyItemID == updated.SupplyItemID && Sign(old.Kind, old.Inbound) == Sign(updated.Kind, updated.Inbound) {
		if old.Quantity.Equal(updated.Quantity) {
			return nil, nil
		}
		res, err := s.Adjust(ctx, tx, Adjustment{Event: updated, Mode: models.LedgerModeEdit, PreviousQuantity: old.Quantity})
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	}

	reversed, err := s.Adjust(ctx, tx, Adjustment{Event: old, Mode: models.LedgerModeReverse})
	if err != nil {
		return nil, err
	}
	applied, err := s.Adjust(ctx, tx, Adjustment{Event: updated, Mode: models.LedgerModeApply})
	if err != nil {
		return nil, err
	}
	return []*Result{reversed, applied}, nil
}

// Recount sets an item to a counted quantity by recording the difference
// as an adjustment. A count equal to the stock writes nothing.
func (s *Service) Recount(ctx context.Context, tx *gorm.DB, itemID uint, counted decimal.Decimal, userID *uint) (*Result, error) {
	if counted.IsNegative() {
		return nil, ErrInvalidQuantity
	}
	item, err := NewRepository(tx).FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	diff := counted.Sub(item.QuantityOnHand)
	if diff.IsZero() {
		return &Result{Item: item}, nil
	}
	return s.Adjust(ctx, tx, Adjustment{
		Event: Event{
			Kind:         models.LedgerKindAdjustment,
			SupplyItemID: itemID,
			Quantity:     diff.Abs(),
			Inbound:      diff.IsPositive(),
			SourceType:   "supply_item",
			SourceID:     &item.ID,
			Reason:       "Recuento de stock",
			UserID:       userID,
		},
		Mode: models.LedgerModeApply,
	})
}

// provision creates the item for a product nobody registered yet; the
// produced quantity becomes its opening stock.
func (s *Service) provision(ctx context.Context, repo *Repository, adj Adjustment) (*Result, error) {
	item := &models.SupplyItem{
		Name:           strings.TrimSpace(adj.ProductName),
		Type:           provisionedType,
		Unit:           provisionedUnit,
		QuantityOnHand: adj.Quantity,
	}
	if err := repo.Create(ctx, item); err != nil {
		return nil, err
	}

	ev := s.newEvent(adj, item.ID, Plan{Before: decimal.Zero, Delta: adj.Quantity, After: adj.Quantity})
	if err := repo.AppendEvent(ctx, ev); err != nil {
		return nil, err
	}

	s.metrics.RecordProvisioned()
	s.logger.WithFields(logrus.Fields{
		"module":         "ledger",
		"supply_item_id": item.ID,
		"name":           item.Name,
	}).Info("insumo creado automáticamente desde producción")

	return &Result{Item: item, Event: ev, Provisioned: true}, nil
}

// Open records the stock a supply item was created with.
func (s *Service) Open(ctx context.Context, tx *gorm.DB, item *models.SupplyItem, userID *uint) (*models.LedgerEvent, error) {
	if !item.QuantityOnHand.IsPositive() {
		return nil, nil
	}
	ev := s.newEvent(Adjustment{
		Event: Event{
			Kind:       models.LedgerKindOpening,
			Quantity:   item.QuantityOnHand,
			SourceType: "supply_item",
			SourceID:   &item.ID,
			Reason:     "Stock inicial",
			UserID:     userID,
		},
		Mode: models.LedgerModeApply,
	}, item.ID, Plan{Before: decimal.Zero, Delta: item.QuantityOnHand, After: item.QuantityOnHand})

	if err := NewRepository(tx).AppendEvent(ctx, ev); err != nil {
		return nil, err
	}
	s.metrics.RecordAdjustment(string(models.LedgerKindOpening), string(models.LedgerModeApply), "ok")
	return ev, nil
}

func (s *Service) newEvent(adj Adjustment, itemID uint, plan Plan) *models.LedgerEvent {
	return &models.LedgerEvent{
		EventID:      uuid.New(),
		SupplyItemID: itemID,
		Kind:         adj.Kind,
		Mode:         adj.Mode,
		Quantity:     adj.Quantity,
		Delta:        plan.Delta,
		StockBefore:  plan.Before,
		StockAfter:   plan.After,
		SourceType:   adj.SourceType,
		SourceID:     adj.SourceID,
		Reason:       adj.Reason,
		UserID:       adj.UserID,
	}
}

// Reconciliation compares the cached quantity with the fold of the ledger.
type Reconciliation struct {
	Item   *models.SupplyItem
	Events []models.LedgerEvent
	Folded decimal.Decimal
	Drift  decimal.Decimal
}

func (s *Service) Reconcile(ctx context.Context, itemID uint) (*Reconciliation, error) {
	repo := NewRepository(s.db)
	item, err := repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	events, err := repo.Events(ctx, itemID)
	if err != nil {
		return nil, err
	}
	folded := Fold(events)
	return &Reconciliation{
		Item:   item,
		Events: events,
		Folded: folded,
		Drift:  item.QuantityOnHand.Sub(folded),
	}, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
