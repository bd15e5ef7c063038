package farm

import (
	"errors"
	"math"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MaxShedCapacity es la capacidad máxima de aves admitida por galpón.
const MaxShedCapacity = 5000

type ShedRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Capacity    int    `json:"capacity" validate:"min=1,max=5000"`
	Birds       int    `json:"birds" validate:"min=0,ltefield=Capacity"`
	Ventilation string `json:"ventilation" validate:"required,oneof=Natural Mecánica Automatizada"`
	Lighting    string `json:"lighting" validate:"required,oneof=LED Incandescente Natural"`
}

type ShedResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Birds       int    `json:"birds"`
	Ventilation string `json:"ventilation"`
	Lighting    string `json:"lighting"`
	Occupancy   int    `json:"occupancy"`
	Level       string `json:"level"`
}

type OccupancySummary struct {
	Sheds         int            `json:"sheds"`
	TotalBirds    int            `json:"total_birds"`
	TotalCapacity int            `json:"total_capacity"`
	Occupancy     int            `json:"occupancy"`
	Alerts        []ShedResponse `json:"alerts"`
}

var shedFilters = map[string]api.Filter{
	"id":          {Column: "id"},
	"name":        {Column: "name"},
	"ventilation": {Column: "ventilation"},
	"lighting":    {Column: "lighting"},
}

// Occupancy devuelve el porcentaje de ocupación redondeado.
func Occupancy(birds, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	return int(math.Round(float64(birds) / float64(capacity) * 100))
}

// OccupancyLevel: "critica" por encima del 90 %, "alta" por encima del 75 %.
func OccupancyLevel(pct int) string {
	switch {
	case pct > 90:
		return "critica"
	case pct > 75:
		return "alta"
	default:
		return "normal"
	}
}

func toShedResponse(s models.Shed) ShedResponse {
	pct := Occupancy(s.Birds, s.Capacity)
	return ShedResponse{
		ID:          s.ID,
		Name:        s.Name,
		Capacity:    s.Capacity,
		Birds:       s.Birds,
		Ventilation: s.Ventilation,
		Lighting:    s.Lighting,
		Occupancy:   pct,
		Level:       OccupancyLevel(pct),
	}
}

func parseShed(c *fiber.Ctx) (*ShedRequest, error) {
	var body ShedRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.Name = strings.TrimSpace(body.Name)
	if err := api.Validate(body); err != nil {
		return nil, err
	}
	return &body, nil
}

func loadShed(id uint) (*models.Shed, error) {
	var s models.Shed
	if err := database.DB.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Galpón no encontrado")
		}
		return nil, err
	}
	return &s, nil
}

func shedNameTaken(name string, exceptID uint) (bool, error) {
	var count int64
	err := database.DB.Model(&models.Shed{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), exceptID).
		Count(&count).Error
	return count > 0, err
}

// requireShed valida una referencia a galpón desde otro recurso.
func requireShed(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Shed{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Galpón no encontrado")
	}
	return nil
}

// POST /api/sheds
func CreateShedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseShed(c)
		if err != nil {
			return err
		}
		taken, err := shedNameTaken(body.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fiber.NewError(fiber.StatusConflict, "Ya existe un galpón con ese nombre")
		}

		s := models.Shed{
			Name:        body.Name,
			Capacity:    body.Capacity,
			Birds:       body.Birds,
			Ventilation: body.Ventilation,
			Lighting:    body.Lighting,
		}
		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el galpón")
		}
		return c.Status(fiber.StatusCreated).JSON(toShedResponse(s))
	}
}

// GET /api/sheds
func ListShedsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Shed{}), shedFilters)
		if err != nil {
			return err
		}
		var sheds []models.Shed
		if err := q.Order("name asc").Find(&sheds).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los galpones")
		}
		resp := make([]ShedResponse, 0, len(sheds))
		for _, s := range sheds {
			resp = append(resp, toShedResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/sheds/occupancy
func ShedOccupancyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sheds []models.Shed
		if err := database.DB.Order("name asc").Find(&sheds).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular la ocupación")
		}

		sum := OccupancySummary{Sheds: len(sheds), Alerts: []ShedResponse{}}
		for _, s := range sheds {
			sum.TotalBirds += s.Birds
			sum.TotalCapacity += s.Capacity
			if r := toShedResponse(s); r.Level == "critica" {
				sum.Alerts = append(sum.Alerts, r)
			}
		}
		sum.Occupancy = Occupancy(sum.TotalBirds, sum.TotalCapacity)
		return c.JSON(sum)
	}
}

// GET /api/sheds/:id
func GetShedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		s, err := loadShed(id)
		if err != nil {
			return err
		}
		return c.JSON(toShedResponse(*s))
	}
}

// PUT /api/sheds/:id
func UpdateShedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		s, err := loadShed(id)
		if err != nil {
			return err
		}
		body, err := parseShed(c)
		if err != nil {
			return err
		}
		taken, err := shedNameTaken(body.Name, s.ID)
		if err != nil {
			return err
		}
		if taken {
			return fiber.NewError(fiber.StatusConflict, "Ya existe un galpón con ese nombre")
		}

		s.Name = body.Name
		s.Capacity = body.Capacity
		s.Birds = body.Birds
		s.Ventilation = body.Ventilation
		s.Lighting = body.Lighting
		if err := database.DB.Save(s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el galpón")
		}
		return c.JSON(toShedResponse(*s))
	}
}

// DELETE /api/sheds/:id
func DeleteShedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		s, err := loadShed(id)
		if err != nil {
			return err
		}

		var lots, breeders, hatches int64
		database.DB.Model(&models.Lot{}).Where("shed_id = ?", s.ID).Count(&lots)
		database.DB.Model(&models.Breeder{}).Where("shed_id = ?", s.ID).Count(&breeders)
		database.DB.Model(&models.Genealogy{}).Where("hatch_shed_id = ?", s.ID).Count(&hatches)
		if lots+breeders+hatches > 0 {
			return fiber.NewError(fiber.StatusConflict, "El galpón tiene registros asociados")
		}

		if err := database.DB.Delete(&models.Shed{}, s.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el galpón")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
