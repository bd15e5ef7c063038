package trade

import (
	"errors"
	"fmt"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/auth"
	"granja-backend/internal/database"
	"granja-backend/internal/ledger"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request/Response Types
// -------------------------

const saleSource = "sale"

type SaleRequest struct {
	ClientID     uint            `json:"client_id" validate:"required"`
	SupplyItemID uint            `json:"supply_item_id" validate:"required"`
	Date         string          `json:"date" validate:"required,date,notfuture"`
	Status       string          `json:"status" validate:"required,oneof=Pendiente Pagado Cancelado"`
	Description  string          `json:"description" validate:"required,max=255"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0,decimals=3"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"gte=0,decimals=2"`
}

type SaleResponse struct {
	ID             uint            `json:"id"`
	ClientID       uint            `json:"client_id"`
	ClientName     string          `json:"client_name"`
	SupplyItemID   uint            `json:"supply_item_id"`
	SupplyItemName string          `json:"supply_item_name"`
	Unit           string          `json:"unit"`
	Date           string          `json:"date"`
	Status         string          `json:"status"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	StockAfter     *string         `json:"stock_after,omitempty"`
}

type SaleBalanceResponse struct {
	SaleID    uint            `json:"sale_id"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Payments  int64           `json:"payments"`
}

var saleFilters = map[string]api.Filter{
	"id":             {Column: "id"},
	"client_id":      {Column: "client_id"},
	"supply_item_id": {Column: "supply_item_id"},
	"status":         {Column: "status"},
	"date":           {Column: "date", Date: true},
}

// -------------------------
// Helpers
// -------------------------

func toSaleResponse(s models.Sale) SaleResponse {
	return SaleResponse{
		ID:             s.ID,
		ClientID:       s.ClientID,
		ClientName:     s.Client.Name,
		SupplyItemID:   s.SupplyItemID,
		SupplyItemName: s.SupplyItem.Name,
		Unit:           s.SupplyItem.Unit,
		Date:           api.FormatDate(s.Date),
		Status:         s.Status,
		Description:    s.Description,
		Quantity:       s.Quantity,
		UnitPrice:      s.UnitPrice,
		Total:          s.Total,
	}
}

func saleEvent(c *fiber.Ctx, s *models.Sale) ledger.Event {
	return ledger.Event{
		Kind:         models.LedgerKindSale,
		SupplyItemID: s.SupplyItemID,
		Quantity:     s.Quantity,
		SourceType:   saleSource,
		SourceID:     &s.ID,
		Reason:       "Venta",
		UserID:       auth.UserID(c),
	}
}

func loadSale(tx *gorm.DB, id uint) (*models.Sale, error) {
	var s models.Sale
	if err := tx.Preload("Client").Preload("SupplyItem").First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Venta no encontrada")
		}
		return nil, err
	}
	return &s, nil
}

func requireClient(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Client{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Cliente no encontrado")
	}
	return nil
}

func parseSale(c *fiber.Ctx) (*SaleRequest, *models.Sale, error) {
	var body SaleRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.Description = strings.TrimSpace(body.Description)
	if err := api.Validate(body); err != nil {
		return nil, nil, err
	}
	date, err := api.ParseDate(body.Date)
	if err != nil {
		return nil, nil, err
	}
	return &body, &models.Sale{
		ClientID:     body.ClientID,
		SupplyItemID: body.SupplyItemID,
		Date:         date,
		Status:       body.Status,
		Description:  body.Description,
		Quantity:     body.Quantity,
		UnitPrice:    body.UnitPrice,
		Total:        body.Quantity.Mul(body.UnitPrice).Round(2),
	}, nil
}

// -------------------------
// Sale CRUD
// -------------------------

// POST /api/sales
func CreateSaleHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, sale, err := parseSale(c)
		if err != nil {
			return err
		}

		var created *models.Sale
		var stockAfter string
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			if err := requireClient(tx, body.ClientID); err != nil {
				return err
			}
			if _, err := ledger.NewRepository(tx).FindByID(c.UserContext(), body.SupplyItemID); err != nil {
				return err
			}
			s := *sale
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
			res, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: saleEvent(c, &s), Mode: models.LedgerModeApply})
			if err != nil {
				return err
			}
			stockAfter = res.Item.QuantityOnHand.String()
			created, err = loadSale(tx, s.ID)
			return err
		}, ledger.ItemKey(body.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		resp := toSaleResponse(*created)
		resp.StockAfter = &stockAfter
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/sales?client_id=1&status=Pendiente&date=2024-05-01
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Sale{}), saleFilters)
		if err != nil {
			return err
		}

		var sales []models.Sale
		if err := q.Preload("Client").Preload("SupplyItem").
			Order("date desc, id desc").
			Find(&sales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las ventas")
		}

		resp := make([]SaleResponse, 0, len(sales))
		for _, s := range sales {
			resp = append(resp, toSaleResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/sales/:id
func GetSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		s, err := loadSale(database.DB, id)
		if err != nil {
			return err
		}
		return c.JSON(toSaleResponse(*s))
	}
}

// PUT /api/sales/:id
func UpdateSaleHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		body, next, err := parseSale(c)
		if err != nil {
			return err
		}
		current, err := loadSale(database.DB, id)
		if err != nil {
			return err
		}

		var updated *models.Sale
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			s, err := loadSale(tx, id)
			if err != nil {
				return err
			}
			if s.ClientID != body.ClientID {
				if err := requireClient(tx, body.ClientID); err != nil {
					return err
				}
			}
			paid, _, err := paidForSale(tx, s.ID)
			if err != nil {
				return err
			}
			if paid.GreaterThan(next.Total) {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("El total pagado (%s) no puede superar el total de la venta (%s)", paid.StringFixed(2), next.Total.StringFixed(2)))
			}
			old := saleEvent(c, s)

			s.ClientID = next.ClientID
			s.SupplyItemID = next.SupplyItemID
			s.Date = next.Date
			s.Status = next.Status
			s.Description = next.Description
			s.Quantity = next.Quantity
			s.UnitPrice = next.UnitPrice
			s.Total = next.Total

			if _, err := svc.Replace(c.UserContext(), tx, old, saleEvent(c, s)); err != nil {
				return err
			}
			if err := tx.Omit("Client", "SupplyItem").Save(s).Error; err != nil {
				return err
			}
			updated, err = loadSale(tx, id)
			return err
		}, ledger.ItemKey(current.SupplyItemID), ledger.ItemKey(body.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.JSON(toSaleResponse(*updated))
	}
}

// DELETE /api/sales/:id devuelve al stock la cantidad vendida y borra sus pagos.
func DeleteSaleHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		current, err := loadSale(database.DB, id)
		if err != nil {
			return err
		}

		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			s, err := loadSale(tx, id)
			if err != nil {
				return err
			}
			ev := saleEvent(c, s)
			ev.Reason = "Venta eliminada"
			if _, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: ev, Mode: models.LedgerModeReverse}); err != nil {
				return err
			}
			// los pagos de la venta se eliminan con ella
			if err := tx.Where("sale_id = ?", s.ID).Delete(&models.Payment{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Sale{}, s.ID).Error
		}, ledger.ItemKey(current.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/sales/:id/balance
func SaleBalanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		s, err := loadSale(database.DB, id)
		if err != nil {
			return err
		}

		paid, count, err := paidForSale(database.DB, s.ID)
		if err != nil {
			return err
		}
		return c.JSON(SaleBalanceResponse{
			SaleID:    s.ID,
			Total:     s.Total,
			Paid:      paid,
			Remaining: s.Total.Sub(paid),
			Payments:  count,
		})
	}
}
