package farm

import (
	"errors"
	"fmt"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type GenealogyRequest struct {
	HensLotID     uint   `json:"hens_lot_id" validate:"required"`
	RoostersLotID uint   `json:"roosters_lot_id" validate:"required,nefield=HensLotID"`
	ChicksLot     string `json:"chicks_lot" validate:"required,max=100"`
	HatchShedID   uint   `json:"hatch_shed_id" validate:"required"`
	Notes         string `json:"notes" validate:"max=500"`
}

type GenealogyResponse struct {
	ID              uint   `json:"id"`
	HensLotID       uint   `json:"hens_lot_id"`
	HensLotName     string `json:"hens_lot_name"`
	RoostersLotID   uint   `json:"roosters_lot_id"`
	RoostersLotName string `json:"roosters_lot_name"`
	ChicksLot       string `json:"chicks_lot"`
	HatchShedID     uint   `json:"hatch_shed_id"`
	HatchShedName   string `json:"hatch_shed_name"`
	Notes           string `json:"notes"`
}

var genealogyFilters = map[string]api.Filter{
	"id":              {Column: "id"},
	"hens_lot_id":     {Column: "hens_lot_id"},
	"roosters_lot_id": {Column: "roosters_lot_id"},
	"hatch_shed_id":   {Column: "hatch_shed_id"},
	"chicks_lot":      {Column: "chicks_lot"},
}

func toGenealogyResponse(g models.Genealogy) GenealogyResponse {
	return GenealogyResponse{
		ID:              g.ID,
		HensLotID:       g.HensLotID,
		HensLotName:     g.HensLot.Name,
		RoostersLotID:   g.RoostersLotID,
		RoostersLotName: g.RoostersLot.Name,
		ChicksLot:       g.ChicksLot,
		HatchShedID:     g.HatchShedID,
		HatchShedName:   g.HatchShed.Name,
		Notes:           g.Notes,
	}
}

func genealogyQuery() *gorm.DB {
	return database.DB.Preload("HensLot").Preload("RoostersLot").Preload("HatchShed")
}

func loadGenealogy(id uint) (*models.Genealogy, error) {
	var g models.Genealogy
	if err := genealogyQuery().First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Registro genealógico no encontrado")
		}
		return nil, err
	}
	return &g, nil
}

// requireLotType comprueba que el lote exista y sea del tipo esperado.
func requireLotType(id uint, typ string) error {
	l, err := loadLot(database.DB, id)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
			return fiber.NewError(fiber.StatusBadRequest, fe.Message)
		}
		return err
	}
	if l.Type != typ {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("El lote %q no es de tipo %s", l.Name, typ))
	}
	return nil
}

func parseGenealogy(c *fiber.Ctx) (*models.Genealogy, error) {
	var body GenealogyRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.ChicksLot = strings.TrimSpace(body.ChicksLot)
	body.Notes = strings.TrimSpace(body.Notes)
	if err := api.Validate(body); err != nil {
		return nil, err
	}
	if err := requireLotType(body.HensLotID, LotTypeHens); err != nil {
		return nil, err
	}
	if err := requireLotType(body.RoostersLotID, LotTypeRoosters); err != nil {
		return nil, err
	}
	if err := requireShed(database.DB, body.HatchShedID); err != nil {
		return nil, err
	}
	return &models.Genealogy{
		HensLotID:     body.HensLotID,
		RoostersLotID: body.RoostersLotID,
		ChicksLot:     body.ChicksLot,
		HatchShedID:   body.HatchShedID,
		Notes:         body.Notes,
	}, nil
}

// POST /api/genealogy
func CreateGenealogyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, err := parseGenealogy(c)
		if err != nil {
			return err
		}
		if err := database.DB.Create(g).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el registro")
		}
		created, err := loadGenealogy(g.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toGenealogyResponse(*created))
	}
}

// GET /api/genealogy
func ListGenealogyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, genealogyQuery().Model(&models.Genealogy{}), genealogyFilters)
		if err != nil {
			return err
		}
		var rows []models.Genealogy
		if err := q.Order("id desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo listar la genealogía")
		}
		resp := make([]GenealogyResponse, 0, len(rows))
		for _, g := range rows {
			resp = append(resp, toGenealogyResponse(g))
		}
		return c.JSON(resp)
	}
}

// GET /api/genealogy/:id
func GetGenealogyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		g, err := loadGenealogy(id)
		if err != nil {
			return err
		}
		return c.JSON(toGenealogyResponse(*g))
	}
}

// PUT /api/genealogy/:id
func UpdateGenealogyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		g, err := loadGenealogy(id)
		if err != nil {
			return err
		}
		next, err := parseGenealogy(c)
		if err != nil {
			return err
		}

		g.HensLotID = next.HensLotID
		g.RoostersLotID = next.RoostersLotID
		g.ChicksLot = next.ChicksLot
		g.HatchShedID = next.HatchShedID
		g.Notes = next.Notes
		if err := database.DB.Omit("HensLot", "RoostersLot", "HatchShed").Save(g).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el registro")
		}
		updated, err := loadGenealogy(id)
		if err != nil {
			return err
		}
		return c.JSON(toGenealogyResponse(*updated))
	}
}

// DELETE /api/genealogy/:id
func DeleteGenealogyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		res := database.DB.Delete(&models.Genealogy{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Registro genealógico no encontrado")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
