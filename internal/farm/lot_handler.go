package farm

import (
	"errors"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	LotTypeHens     = "Gallinas"
	LotTypeRoosters = "Gallos"
)

type LotRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Type   string `json:"type" validate:"required,oneof=Gallinas Gallos Pollitos Ponedoras Engorde"`
	ShedID uint   `json:"shed_id" validate:"required"`
}

type LotResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ShedID   uint   `json:"shed_id"`
	ShedName string `json:"shed_name"`
}

var lotFilters = map[string]api.Filter{
	"id":      {Column: "id"},
	"name":    {Column: "name"},
	"type":    {Column: "type"},
	"shed_id": {Column: "shed_id"},
}

func toLotResponse(l models.Lot) LotResponse {
	return LotResponse{
		ID:       l.ID,
		Name:     l.Name,
		Type:     l.Type,
		ShedID:   l.ShedID,
		ShedName: l.Shed.Name,
	}
}

func parseLot(c *fiber.Ctx) (*LotRequest, error) {
	var body LotRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.Name = strings.TrimSpace(body.Name)
	if err := api.Validate(body); err != nil {
		return nil, err
	}
	if err := requireShed(database.DB, body.ShedID); err != nil {
		return nil, err
	}
	return &body, nil
}

func loadLot(tx *gorm.DB, id uint) (*models.Lot, error) {
	var l models.Lot
	if err := tx.Preload("Shed").First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Lote no encontrado")
		}
		return nil, err
	}
	return &l, nil
}

// POST /api/lots
func CreateLotHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseLot(c)
		if err != nil {
			return err
		}
		l := models.Lot{Name: body.Name, Type: body.Type, ShedID: body.ShedID}
		if err := database.DB.Create(&l).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el lote")
		}
		created, err := loadLot(database.DB, l.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toLotResponse(*created))
	}
}

// GET /api/lots?shed_id=1&type=Gallinas
func ListLotsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Lot{}), lotFilters)
		if err != nil {
			return err
		}
		var lots []models.Lot
		if err := q.Preload("Shed").Order("name asc").Find(&lots).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los lotes")
		}
		resp := make([]LotResponse, 0, len(lots))
		for _, l := range lots {
			resp = append(resp, toLotResponse(l))
		}
		return c.JSON(resp)
	}
}

// GET /api/lots/:id
func GetLotHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		l, err := loadLot(database.DB, id)
		if err != nil {
			return err
		}
		return c.JSON(toLotResponse(*l))
	}
}

// PUT /api/lots/:id
func UpdateLotHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		l, err := loadLot(database.DB, id)
		if err != nil {
			return err
		}
		body, err := parseLot(c)
		if err != nil {
			return err
		}

		l.Name = body.Name
		l.Type = body.Type
		l.ShedID = body.ShedID
		if err := database.DB.Omit("Shed").Save(l).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el lote")
		}
		updated, err := loadLot(database.DB, id)
		if err != nil {
			return err
		}
		return c.JSON(toLotResponse(*updated))
	}
}

// DELETE /api/lots/:id
func DeleteLotHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		l, err := loadLot(database.DB, id)
		if err != nil {
			return err
		}

		var production, genealogy int64
		database.DB.Model(&models.Production{}).Where("lot_id = ?", l.ID).Count(&production)
		database.DB.Model(&models.Genealogy{}).Where("hens_lot_id = ? OR roosters_lot_id = ?", l.ID, l.ID).Count(&genealogy)
		if production+genealogy > 0 {
			return fiber.NewError(fiber.StatusConflict, "El lote tiene registros asociados")
		}

		if err := database.DB.Delete(&models.Lot{}, l.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el lote")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
