package trade

import (
	"errors"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var clientTypes = []string{"Mayorista", "Minorista", "Supermercado", "Otro"}

type ClientRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=200"`
	Type    string `json:"type" validate:"required,oneof=Mayorista Minorista Supermercado Otro"`
	Contact string `json:"contact" validate:"required,contact"`
	Address string `json:"address" validate:"required,max=255"`
	UserID  uint   `json:"user_id" validate:"required"`
}

type ClientResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Contact   string `json:"contact"`
	Address   string `json:"address"`
	UserID    uint   `json:"user_id"`
	UserName  string `json:"user_name"`
	CreatedAt string `json:"created_at"`
}

type ClientTypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

var clientFilters = map[string]api.Filter{
	"id":      {Column: "id"},
	"name":    {Column: "name"},
	"type":    {Column: "type"},
	"contact": {Column: "contact"},
	"user_id": {Column: "user_id"},
}

func toClientResponse(cl models.Client) ClientResponse {
	return ClientResponse{
		ID:        cl.ID,
		Name:      cl.Name,
		Type:      cl.Type,
		Contact:   cl.Contact,
		Address:   cl.Address,
		UserID:    cl.UserID,
		UserName:  cl.User.FullName,
		CreatedAt: api.FormatTimestamp(cl.CreatedAt),
	}
}

func parseClient(c *fiber.Ctx) (*ClientRequest, error) {
	var body ClientRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Contact = strings.TrimSpace(body.Contact)
	body.Address = strings.TrimSpace(body.Address)
	if err := api.Validate(body); err != nil {
		return nil, err
	}

	var count int64
	if err := database.DB.Model(&models.User{}).Where("id = ?", body.UserID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Usuario no encontrado")
	}
	return &body, nil
}

func loadClient(id uint) (*models.Client, error) {
	var cl models.Client
	if err := database.DB.Preload("User").First(&cl, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Cliente no encontrado")
		}
		return nil, err
	}
	return &cl, nil
}

// POST /api/clients
func CreateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseClient(c)
		if err != nil {
			return err
		}

		cl := models.Client{
			Name:    body.Name,
			Type:    body.Type,
			Contact: body.Contact,
			Address: body.Address,
			UserID:  body.UserID,
		}
		if err := database.DB.Create(&cl).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el cliente")
		}

		created, err := loadClient(cl.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toClientResponse(*created))
	}
}

// GET /api/clients?type=Mayorista&q=...
func ListClientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Client{}), clientFilters, "q")
		if err != nil {
			return err
		}
		if term := strings.ToLower(strings.TrimSpace(c.Query("q"))); term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(contact) LIKE ? OR LOWER(address) LIKE ?", like, like, like)
		}

		var clients []models.Client
		if err := q.Preload("User").Order("name asc").Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los clientes")
		}

		resp := make([]ClientResponse, 0, len(clients))
		for _, cl := range clients {
			resp = append(resp, toClientResponse(cl))
		}
		return c.JSON(resp)
	}
}

// GET /api/clients/summary devuelve la cantidad de clientes por tipo, incluidos los tipos sin clientes.
func ClientSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []ClientTypeCount
		if err := database.DB.Model(&models.Client{}).
			Select("type, COUNT(*) AS count").
			Group("type").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen")
		}

		counts := make(map[string]int64, len(rows))
		for _, r := range rows {
			counts[r.Type] = r.Count
		}
		resp := make([]ClientTypeCount, 0, len(clientTypes))
		for _, t := range clientTypes {
			resp = append(resp, ClientTypeCount{Type: t, Count: counts[t]})
		}
		return c.JSON(resp)
	}
}

// GET /api/clients/:id
func GetClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		cl, err := loadClient(id)
		if err != nil {
			return err
		}
		return c.JSON(toClientResponse(*cl))
	}
}

// PUT /api/clients/:id
func UpdateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		cl, err := loadClient(id)
		if err != nil {
			return err
		}
		body, err := parseClient(c)
		if err != nil {
			return err
		}

		cl.Name = body.Name
		cl.Type = body.Type
		cl.Contact = body.Contact
		cl.Address = body.Address
		cl.UserID = body.UserID
		if err := database.DB.Omit("User").Save(cl).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el cliente")
		}

		updated, err := loadClient(id)
		if err != nil {
			return err
		}
		return c.JSON(toClientResponse(*updated))
	}
}

// DELETE /api/clients/:id
func DeleteClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		cl, err := loadClient(id)
		if err != nil {
			return err
		}

		var sales int64
		if err := database.DB.Model(&models.Sale{}).Where("client_id = ?", cl.ID).Count(&sales).Error; err != nil {
			return err
		}
		if sales > 0 {
			return fiber.NewError(fiber.StatusConflict, "El cliente tiene ventas registradas")
		}

		if err := database.DB.Delete(&models.Client{}, cl.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el cliente")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
