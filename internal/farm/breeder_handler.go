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

const breederActive = "activo"

type BreederRequest struct {
	Quantity  int    `json:"quantity" validate:"min=1"`
	EntryDate string `json:"entry_date" validate:"required,date,notfuture"`
	Status    string `json:"status" validate:"required,oneof=activo enfermo retirado fallecido"`
	ShedID    uint   `json:"shed_id" validate:"required"`
	Notes     string `json:"notes" validate:"max=500"`
}

type BreederResponse struct {
	ID        uint   `json:"id"`
	Quantity  int    `json:"quantity"`
	EntryDate string `json:"entry_date"`
	Status    string `json:"status"`
	ShedID    uint   `json:"shed_id"`
	ShedName  string `json:"shed_name"`
	Notes     string `json:"notes"`
}

var breederFilters = map[string]api.Filter{
	"id":         {Column: "id"},
	"status":     {Column: "status"},
	"shed_id":    {Column: "shed_id"},
	"entry_date": {Column: "entry_date", Date: true},
}

func toBreederResponse(b models.Breeder) BreederResponse {
	return BreederResponse{
		ID:        b.ID,
		Quantity:  b.Quantity,
		EntryDate: api.FormatDate(b.EntryDate),
		Status:    b.Status,
		ShedID:    b.ShedID,
		ShedName:  b.Shed.Name,
		Notes:     b.Notes,
	}
}

func loadBreeder(id uint) (*models.Breeder, error) {
	var b models.Breeder
	if err := database.DB.Preload("Shed").First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Registro de reproductores no encontrado")
		}
		return nil, err
	}
	return &b, nil
}

// parseBreeder valida el cuerpo; un galpón admite un solo registro activo.
func parseBreeder(c *fiber.Ctx, exceptID uint) (*models.Breeder, error) {
	var body BreederRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.Notes = strings.TrimSpace(body.Notes)
	if err := api.Validate(body); err != nil {
		return nil, err
	}
	if err := requireShed(database.DB, body.ShedID); err != nil {
		return nil, err
	}
	if body.Status == breederActive {
		var count int64
		if err := database.DB.Model(&models.Breeder{}).
			Where("shed_id = ? AND status = ? AND id <> ?", body.ShedID, breederActive, exceptID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fiber.NewError(fiber.StatusConflict, "Ya hay un registro de gallos activos en este galpón")
		}
	}

	date, err := api.ParseDate(body.EntryDate)
	if err != nil {
		return nil, err
	}
	return &models.Breeder{
		Quantity:  body.Quantity,
		EntryDate: date,
		Status:    body.Status,
		ShedID:    body.ShedID,
		Notes:     body.Notes,
	}, nil
}

// POST /api/breeders
func CreateBreederHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := parseBreeder(c, 0)
		if err != nil {
			return err
		}
		if err := database.DB.Create(b).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el registro")
		}
		created, err := loadBreeder(b.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toBreederResponse(*created))
	}
}

// GET /api/breeders?status=activo
func ListBreedersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Breeder{}), breederFilters)
		if err != nil {
			return err
		}
		var breeders []models.Breeder
		if err := q.Preload("Shed").Order("entry_date desc, id desc").Find(&breeders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los reproductores")
		}
		resp := make([]BreederResponse, 0, len(breeders))
		for _, b := range breeders {
			resp = append(resp, toBreederResponse(b))
		}
		return c.JSON(resp)
	}
}

// GET /api/breeders/:id
func GetBreederHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		b, err := loadBreeder(id)
		if err != nil {
			return err
		}
		return c.JSON(toBreederResponse(*b))
	}
}

// PUT /api/breeders/:id
func UpdateBreederHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		b, err := loadBreeder(id)
		if err != nil {
			return err
		}
		next, err := parseBreeder(c, b.ID)
		if err != nil {
			return err
		}

		b.Quantity = next.Quantity
		b.EntryDate = next.EntryDate
		b.Status = next.Status
		b.ShedID = next.ShedID
		b.Notes = next.Notes
		if err := database.DB.Omit("Shed").Save(b).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el registro")
		}
		updated, err := loadBreeder(id)
		if err != nil {
			return err
		}
		return c.JSON(toBreederResponse(*updated))
	}
}

// DELETE /api/breeders/:id
func DeleteBreederHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		res := database.DB.Delete(&models.Breeder{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Registro de reproductores no encontrado")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
