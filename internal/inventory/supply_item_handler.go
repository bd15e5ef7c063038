package inventory

import (
	"context"
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

type CreateSupplyItemRequest struct {
	Name           string          `json:"name" validate:"required,max=120"`
	Type           string          `json:"type" validate:"required,max=60"`
	Unit           string          `json:"unit" validate:"required,oneof=docena unidad kg L g"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand" validate:"gte=0,decimals=3"`
}

// UpdateSupplyItemRequest serves PUT and PATCH; PUT requires every field.
type UpdateSupplyItemRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=120"`
	Type           *string          `json:"type" validate:"omitempty,min=1,max=60"`
	Unit           *string          `json:"unit" validate:"omitempty,oneof=docena unidad kg L g"`
	QuantityOnHand *decimal.Decimal `json:"quantity_on_hand" validate:"omitempty,gte=0,decimals=3"`
}

type SupplyItemResponse struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Unit           string          `json:"unit"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	Version        uint            `json:"version"`
	UpdatedAt      string          `json:"updated_at"`
}

type LedgerEventResponse struct {
	ID            uint            `json:"id"`
	EventID       string          `json:"event_id"`
	Kind          string          `json:"kind"`
	Mode          string          `json:"mode"`
	Quantity      decimal.Decimal `json:"quantity"`
	Delta         decimal.Decimal `json:"delta"`
	StockBefore   decimal.Decimal `json:"stock_before"`
	StockAfter    decimal.Decimal `json:"stock_after"`
	SourceType    string          `json:"source_type"`
	SourceID      *uint           `json:"source_id"`
	CompensatesID *uint           `json:"compensates_id"`
	Reason        string          `json:"reason"`
	UserID        *uint           `json:"user_id"`
	CreatedAt     string          `json:"created_at"`
}

type SupplyItemLedgerResponse struct {
	Item   SupplyItemResponse    `json:"item"`
	Events []LedgerEventResponse `json:"events"`
	Folded decimal.Decimal       `json:"folded"`
	Drift  decimal.Decimal       `json:"drift"`
}

var supplyItemFilters = map[string]api.Filter{
	"id":   {Column: "id"},
	"name": {Column: "name"},
	"type": {Column: "type"},
	"unit": {Column: "unit"},
}

func toSupplyItemResponse(i models.SupplyItem) SupplyItemResponse {
	return SupplyItemResponse{
		ID:             i.ID,
		Name:           i.Name,
		Type:           i.Type,
		Unit:           i.Unit,
		QuantityOnHand: i.QuantityOnHand,
		Version:        i.Version,
		UpdatedAt:      api.FormatTimestamp(i.UpdatedAt),
	}
}

func toLedgerEventResponse(e models.LedgerEvent) LedgerEventResponse {
	return LedgerEventResponse{
		ID:            e.ID,
		EventID:       e.EventID.String(),
		Kind:          string(e.Kind),
		Mode:          string(e.Mode),
		Quantity:      e.Quantity,
		Delta:         e.Delta,
		StockBefore:   e.StockBefore,
		StockAfter:    e.StockAfter,
		SourceType:    e.SourceType,
		SourceID:      e.SourceID,
		CompensatesID: e.CompensatesID,
		Reason:        e.Reason,
		UserID:        e.UserID,
		CreatedAt:     api.FormatTimestamp(e.CreatedAt),
	}
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// POST /api/supply-items
func CreateSupplyItemHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSupplyItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		body.Name = strings.TrimSpace(body.Name)
		body.Type = strings.TrimSpace(body.Type)
		if err := api.Validate(body); err != nil {
			return err
		}

		var item *models.SupplyItem
		err := svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			item = &models.SupplyItem{
				Name:           body.Name,
				Type:           body.Type,
				Unit:           body.Unit,
				QuantityOnHand: body.QuantityOnHand,
			}
			if err := ledger.NewRepository(tx).Create(c.UserContext(), item); err != nil {
				return err
			}
			_, err := svc.Open(c.UserContext(), tx, item, auth.UserID(c))
			return err
		}, ledger.NameKey(body.Name))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.Status(fiber.StatusCreated).JSON(toSupplyItemResponse(*item))
	}
}

// GET /api/supply-items?type=Vacuna
func ListSupplyItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.SupplyItem{}), supplyItemFilters, "q")
		if err != nil {
			return err
		}
		if term := strings.ToLower(strings.TrimSpace(c.Query("q"))); term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(type) LIKE ?", like, like)
		}

		var items []models.SupplyItem
		if err := q.Order("name asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los insumos")
		}

		resp := make([]SupplyItemResponse, 0, len(items))
		for _, i := range items {
			resp = append(resp, toSupplyItemResponse(i))
		}
		return c.JSON(resp)
	}
}

// GET /api/supply-items/:id
func GetSupplyItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		item, err := ledger.NewRepository(database.DB).FindByID(c.UserContext(), id)
		if err != nil {
			return api.FromLedger(err)
		}
		return c.JSON(toSupplyItemResponse(*item))
	}
}

// PUT /api/supply-items/:id and PATCH /api/supply-items/:id
// Un cambio de quantity_on_hand se registra como recuento, nunca se sobrescribe.
func UpdateSupplyItemHandler(svc *ledger.Service, partial bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}

		var body UpdateSupplyItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		trimPtr(body.Name)
		trimPtr(body.Type)
		if !partial && (body.Name == nil || body.Type == nil || body.Unit == nil || body.QuantityOnHand == nil) {
			return fiber.NewError(fiber.StatusBadRequest, "name, type, unit y quantity_on_hand son obligatorios")
		}
		if err := api.Validate(body); err != nil {
			return err
		}

		var item *models.SupplyItem
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			var uerr error
			item, uerr = updateSupplyItem(c.UserContext(), svc, tx, id, body, auth.UserID(c))
			return uerr
		}, ledger.ItemKey(id))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.JSON(toSupplyItemResponse(*item))
	}
}

func updateSupplyItem(ctx context.Context, svc *ledger.Service, tx *gorm.DB, id uint, body UpdateSupplyItemRequest, userID *uint) (*models.SupplyItem, error) {
	repo := ledger.NewRepository(tx)

	if body.QuantityOnHand != nil {
		if _, err := svc.Recount(ctx, tx, id, *body.QuantityOnHand, userID); err != nil {
			return nil, err
		}
	}

	item, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if body.Name != nil {
		fields["name"] = *body.Name
	}
	if body.Type != nil {
		fields["type"] = *body.Type
	}
	if body.Unit != nil {
		fields["unit"] = *body.Unit
	}
	if len(fields) > 0 {
		if err := tx.Model(item).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return repo.FindByID(ctx, id)
}

// DELETE /api/supply-items/:id
// Compras, ventas y movimientos referencian el insumo y bloquean el borrado.
// La producción no: los eventos del ledger se conservan y borrar después una
// producción de este insumo no mueve stock.
func DeleteSupplyItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}

		var refs int64
		for _, m := range []interface{}{&models.Purchase{}, &models.Sale{}, &models.InventoryMovement{}} {
			var n int64
			if err := database.DB.Model(m).Where("supply_item_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			refs += n
		}
		if refs > 0 {
			return fiber.NewError(fiber.StatusConflict, "El insumo tiene compras, ventas o movimientos registrados")
		}

		res := database.DB.Delete(&models.SupplyItem{}, id)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el insumo")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Insumo no encontrado")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/supply-items/:id/ledger
func SupplyItemLedgerHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		rec, err := svc.Reconcile(c.UserContext(), id)
		if err != nil {
			return api.FromLedger(err)
		}

		events := make([]LedgerEventResponse, 0, len(rec.Events))
		for _, e := range rec.Events {
			events = append(events, toLedgerEventResponse(e))
		}
		return c.JSON(SupplyItemLedgerResponse{
			Item:   toSupplyItemResponse(*rec.Item),
			Events: events,
			Folded: rec.Folded,
			Drift:  rec.Drift,
		})
	}
}
