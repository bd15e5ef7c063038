package purchasing

import (
	"errors"

	"granja-backend/internal/api"
	"granja-backend/internal/auth"
	"granja-backend/internal/database"
	"granja-backend/internal/ledger"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const purchaseSource = "purchase"

type PurchaseRequest struct {
	SupplierID   uint            `json:"supplier_id" validate:"required"`
	SupplyItemID uint            `json:"supply_item_id" validate:"required"`
	Date         string          `json:"date" validate:"required,date,notfuture"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0,decimals=3"`
	TotalPrice   decimal.Decimal `json:"total_price" validate:"gt=0,decimals=2"`
}

type PurchaseResponse struct {
	ID             uint            `json:"id"`
	SupplierID     uint            `json:"supplier_id"`
	SupplierName   string          `json:"supplier_name"`
	SupplyItemID   uint            `json:"supply_item_id"`
	SupplyItemName string          `json:"supply_item_name"`
	Unit           string          `json:"unit"`
	Date           string          `json:"date"`
	Quantity       decimal.Decimal `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	StockAfter     *string         `json:"stock_after,omitempty"`
}

var purchaseFilters = map[string]api.Filter{
	"id":             {Column: "id"},
	"supplier_id":    {Column: "supplier_id"},
	"supply_item_id": {Column: "supply_item_id"},
	"date":           {Column: "date", Date: true},
}

func toPurchaseResponse(p models.Purchase) PurchaseResponse {
	resp := PurchaseResponse{
		ID:             p.ID,
		SupplierID:     p.SupplierID,
		SupplierName:   p.Supplier.Name,
		SupplyItemID:   p.SupplyItemID,
		SupplyItemName: p.SupplyItem.Name,
		Unit:           p.SupplyItem.Unit,
		Date:           api.FormatDate(p.Date),
		Quantity:       p.Quantity,
		TotalPrice:     p.TotalPrice,
	}
	if p.Quantity.IsPositive() {
		resp.UnitPrice = p.TotalPrice.DivRound(p.Quantity, 2)
	}
	return resp
}

func purchaseEvent(c *fiber.Ctx, p *models.Purchase) ledger.Event {
	return ledger.Event{
		Kind:         models.LedgerKindPurchase,
		SupplyItemID: p.SupplyItemID,
		Quantity:     p.Quantity,
		SourceType:   purchaseSource,
		SourceID:     &p.ID,
		Reason:       "Compra",
		UserID:       auth.UserID(c),
	}
}

func loadPurchase(tx *gorm.DB, id uint) (*models.Purchase, error) {
	var p models.Purchase
	if err := tx.Preload("Supplier").Preload("SupplyItem").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Compra no encontrada")
		}
		return nil, err
	}
	return &p, nil
}

func requireSupplier(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Supplier{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Proveedor no encontrado")
	}
	return nil
}

// POST /api/purchases
func CreatePurchaseHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PurchaseRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := api.ParseDate(body.Date)
		if err != nil {
			return err
		}

		var created *models.Purchase
		var stockAfter string
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			if err := requireSupplier(tx, body.SupplierID); err != nil {
				return err
			}
			if _, err := ledger.NewRepository(tx).FindByID(c.UserContext(), body.SupplyItemID); err != nil {
				return err
			}

			p := models.Purchase{
				SupplierID:   body.SupplierID,
				SupplyItemID: body.SupplyItemID,
				Date:         date,
				Quantity:     body.Quantity,
				TotalPrice:   body.TotalPrice,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}

			res, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: purchaseEvent(c, &p), Mode: models.LedgerModeApply})
			if err != nil {
				return err
			}
			stockAfter = res.Item.QuantityOnHand.String()

			created, err = loadPurchase(tx, p.ID)
			return err
		}, ledger.ItemKey(body.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		resp := toPurchaseResponse(*created)
		resp.StockAfter = &stockAfter
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/purchases?supplier_id=1&supply_item_id=2&date=2024-05-01
func ListPurchasesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Purchase{}), purchaseFilters)
		if err != nil {
			return err
		}

		var purchases []models.Purchase
		if err := q.Preload("Supplier").Preload("SupplyItem").
			Order("date desc, id desc").
			Find(&purchases).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las compras")
		}

		resp := make([]PurchaseResponse, 0, len(purchases))
		for _, p := range purchases {
			resp = append(resp, toPurchaseResponse(p))
		}
		return c.JSON(resp)
	}
}

// GET /api/purchases/:id
func GetPurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		p, err := loadPurchase(database.DB, id)
		if err != nil {
			return err
		}
		return c.JSON(toPurchaseResponse(*p))
	}
}

// PUT /api/purchases/:id
// Cambiar la cantidad aplica solo la diferencia; cambiar el insumo devuelve
// el stock al insumo anterior y lo suma al nuevo.
func UpdatePurchaseHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		var body PurchaseRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := api.ParseDate(body.Date)
		if err != nil {
			return err
		}

		current, err := loadPurchase(database.DB, id)
		if err != nil {
			return err
		}

		var updated *models.Purchase
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			p, err := loadPurchase(tx, id)
			if err != nil {
				return err
			}
			if p.SupplierID != body.SupplierID {
				if err := requireSupplier(tx, body.SupplierID); err != nil {
					return err
				}
			}

			old := purchaseEvent(c, p)

			p.SupplierID = body.SupplierID
			p.SupplyItemID = body.SupplyItemID
			p.Date = date
			p.Quantity = body.Quantity
			p.TotalPrice = body.TotalPrice

			if _, err := svc.Replace(c.UserContext(), tx, old, purchaseEvent(c, p)); err != nil {
				return err
			}
			if err := tx.Omit("Supplier", "SupplyItem").Save(p).Error; err != nil {
				return err
			}

			updated, err = loadPurchase(tx, id)
			return err
		}, ledger.ItemKey(current.SupplyItemID), ledger.ItemKey(body.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.JSON(toPurchaseResponse(*updated))
	}
}

// DELETE /api/purchases/:id
func DeletePurchaseHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		current, err := loadPurchase(database.DB, id)
		if err != nil {
			return err
		}

		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			p, err := loadPurchase(tx, id)
			if err != nil {
				return err
			}
			ev := purchaseEvent(c, p)
			ev.Reason = "Compra eliminada"
			if _, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: ev, Mode: models.LedgerModeReverse}); err != nil {
				return err
			}
			return tx.Delete(&models.Purchase{}, p.ID).Error
		}, ledger.ItemKey(current.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
