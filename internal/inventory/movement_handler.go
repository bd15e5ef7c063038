package inventory

import (
	"errors"
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

const (
	movementSource = "inventory_movement"

	DirectionIn  = "in"
	DirectionOut = "out"
)

type MovementRequest struct {
	SupplyItemID uint            `json:"supply_item_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0,decimals=3"`
	Date         string          `json:"date" validate:"required,date,notfuture"`
	Reason       string          `json:"reason" validate:"required,max=60"`
	Direction    string          `json:"direction" validate:"omitempty,oneof=in out"`
}

type MovementResponse struct {
	ID             uint            `json:"id"`
	SupplyItemID   uint            `json:"supply_item_id"`
	SupplyItemName string          `json:"supply_item_name"`
	Unit           string          `json:"unit"`
	Date           string          `json:"date"`
	Quantity       decimal.Decimal `json:"quantity"`
	Direction      string          `json:"direction"`
	Reason         string          `json:"reason"`
}

type MovementReasonTotal struct {
	Reason    string          `json:"reason"`
	Direction string          `json:"direction"`
	Quantity  decimal.Decimal `json:"quantity"`
	Count     int64           `json:"count"`
}

var movementFilters = map[string]api.Filter{
	"id":             {Column: "id"},
	"supply_item_id": {Column: "supply_item_id"},
	"reason":         {Column: "reason"},
	"date":           {Column: "date", Date: true},
}

func direction(inbound bool) string {
	if inbound {
		return DirectionIn
	}
	return DirectionOut
}

// resolveInbound gives Ingreso and Consumo their usual direction; any other
// reason must say which way the stock moves.
func resolveInbound(reason, dir string) (bool, error) {
	var implied string
	switch strings.ToLower(reason) {
	case "ingreso":
		implied = DirectionIn
	case "consumo":
		implied = DirectionOut
	}

	switch {
	case dir == "" && implied == "":
		return false, &api.ValidationError{
			Message: "Datos inválidos",
			Fields:  map[string]string{"direction": "es obligatorio para el motivo " + reason},
		}
	case dir == "":
		dir = implied
	case implied != "" && dir != implied:
		return false, &api.ValidationError{
			Message: "Datos inválidos",
			Fields:  map[string]string{"direction": "no coincide con el motivo " + reason},
		}
	}
	return dir == DirectionIn, nil
}

func toMovementResponse(m models.InventoryMovement) MovementResponse {
	return MovementResponse{
		ID:             m.ID,
		SupplyItemID:   m.SupplyItemID,
		SupplyItemName: m.SupplyItem.Name,
		Unit:           m.SupplyItem.Unit,
		Date:           api.FormatDate(m.Date),
		Quantity:       m.Quantity,
		Direction:      direction(m.Inbound),
		Reason:         m.Reason,
	}
}

func movementEvent(c *fiber.Ctx, m *models.InventoryMovement) ledger.Event {
	return ledger.Event{
		Kind:         models.LedgerKindAdjustment,
		SupplyItemID: m.SupplyItemID,
		Quantity:     m.Quantity,
		Inbound:      m.Inbound,
		SourceType:   movementSource,
		SourceID:     &m.ID,
		Reason:       m.Reason,
		UserID:       auth.UserID(c),
	}
}

func loadMovement(tx *gorm.DB, id uint) (*models.InventoryMovement, error) {
	var m models.InventoryMovement
	if err := tx.Preload("SupplyItem").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Movimiento no encontrado")
		}
		return nil, err
	}
	return &m, nil
}

func parseMovement(c *fiber.Ctx) (*MovementRequest, *models.InventoryMovement, error) {
	var body MovementRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.Reason = strings.TrimSpace(body.Reason)
	if err := api.Validate(body); err != nil {
		return nil, nil, err
	}
	inbound, err := resolveInbound(body.Reason, body.Direction)
	if err != nil {
		return nil, nil, err
	}
	date, err := api.ParseDate(body.Date)
	if err != nil {
		return nil, nil, err
	}
	return &body, &models.InventoryMovement{
		SupplyItemID: body.SupplyItemID,
		Date:         date,
		Quantity:     body.Quantity,
		Inbound:      inbound,
		Reason:       body.Reason,
	}, nil
}

// POST /api/inventory
func CreateMovementHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, m, err := parseMovement(c)
		if err != nil {
			return err
		}

		var created *models.InventoryMovement
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			if _, err := ledger.NewRepository(tx).FindByID(c.UserContext(), body.SupplyItemID); err != nil {
				return err
			}
			mv := *m
			if err := tx.Create(&mv).Error; err != nil {
				return err
			}
			if _, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: movementEvent(c, &mv), Mode: models.LedgerModeApply}); err != nil {
				return err
			}
			var lerr error
			created, lerr = loadMovement(tx, mv.ID)
			return lerr
		}, ledger.ItemKey(body.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.Status(fiber.StatusCreated).JSON(toMovementResponse(*created))
	}
}

// GET /api/inventory?supply_item_id=1&reason=Consumo
func ListMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.InventoryMovement{}), movementFilters)
		if err != nil {
			return err
		}

		var movements []models.InventoryMovement
		if err := q.Preload("SupplyItem").Order("date desc, id desc").Find(&movements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los movimientos")
		}

		resp := make([]MovementResponse, 0, len(movements))
		for _, m := range movements {
			resp = append(resp, toMovementResponse(m))
		}
		return c.JSON(resp)
	}
}

// GET /api/inventory/summary
func MovementSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []struct {
			Reason   string
			Inbound  bool
			Quantity decimal.Decimal
			Count    int64
		}
		if err := database.DB.Model(&models.InventoryMovement{}).
			Select("reason, inbound, SUM(quantity) AS quantity, COUNT(*) AS count").
			Group("reason, inbound").
			Order("reason asc").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen")
		}

		resp := make([]MovementReasonTotal, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, MovementReasonTotal{
				Reason:    r.Reason,
				Direction: direction(r.Inbound),
				Quantity:  r.Quantity,
				Count:     r.Count,
			})
		}
		return c.JSON(resp)
	}
}

// PUT /api/inventory/:id
func UpdateMovementHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		body, next, err := parseMovement(c)
		if err != nil {
			return err
		}
		current, err := loadMovement(database.DB, id)
		if err != nil {
			return err
		}

		var updated *models.InventoryMovement
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			m, err := loadMovement(tx, id)
			if err != nil {
				return err
			}
			old := movementEvent(c, m)

			m.SupplyItemID = next.SupplyItemID
			m.Date = next.Date
			m.Quantity = next.Quantity
			m.Inbound = next.Inbound
			m.Reason = next.Reason

			if _, err := svc.Replace(c.UserContext(), tx, old, movementEvent(c, m)); err != nil {
				return err
			}
			if err := tx.Omit("SupplyItem").Save(m).Error; err != nil {
				return err
			}
			updated, err = loadMovement(tx, id)
			return err
		}, ledger.ItemKey(current.SupplyItemID), ledger.ItemKey(body.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.JSON(toMovementResponse(*updated))
	}
}

// DELETE /api/inventory/:id
func DeleteMovementHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		current, err := loadMovement(database.DB, id)
		if err != nil {
			return err
		}

		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			m, err := loadMovement(tx, id)
			if err != nil {
				return err
			}
			ev := movementEvent(c, m)
			ev.Reason = "Movimiento eliminado"
			if _, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: ev, Mode: models.LedgerModeReverse}); err != nil {
				return err
			}
			return tx.Delete(&models.InventoryMovement{}, m.ID).Error
		}, ledger.ItemKey(current.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
