package purchasing

import (
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// -------------------------
// Request/Response Types
// -------------------------

type SupplierRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=200"`
	Type    string `json:"type" validate:"required,oneof=Alimentos Vacunas Equipos Servicios Transporte Otro"`
	Contact string `json:"contact" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"required,phone"`
	Email   string `json:"email" validate:"required,email"`
}

type SupplierResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Contact   string `json:"contact"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

var supplierFilters = map[string]api.Filter{
	"id":      {Column: "id"},
	"name":    {Column: "name"},
	"type":    {Column: "type"},
	"contact": {Column: "contact"},
	"email":   {Column: "email"},
}

func toSupplierResponse(s models.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Type:      s.Type,
		Contact:   s.Contact,
		Phone:     s.Phone,
		Email:     s.Email,
		CreatedAt: api.FormatTimestamp(s.CreatedAt),
		UpdatedAt: api.FormatTimestamp(s.UpdatedAt),
	}
}

func (r *SupplierRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Contact = strings.TrimSpace(r.Contact)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// -------------------------
// Supplier CRUD
// -------------------------

// POST /api/suppliers
func CreateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		body.normalize()
		if err := api.Validate(body); err != nil {
			return err
		}

		supplier := models.Supplier{
			Name:    body.Name,
			Type:    body.Type,
			Contact: body.Contact,
			Phone:   body.Phone,
			Email:   body.Email,
		}
		if err := database.DB.Create(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el proveedor")
		}

		return c.Status(fiber.StatusCreated).JSON(toSupplierResponse(supplier))
	}
}

// GET /api/suppliers?type=Vacunas&q=...
// q busca por nombre, tipo o contacto.
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Supplier{}), supplierFilters, "q")
		if err != nil {
			return err
		}
		if term := strings.ToLower(strings.TrimSpace(c.Query("q"))); term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(type) LIKE ? OR LOWER(contact) LIKE ?", like, like, like)
		}

		var suppliers []models.Supplier
		if err := q.Order("name asc").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los proveedores")
		}

		resp := make([]SupplierResponse, 0, len(suppliers))
		for _, s := range suppliers {
			resp = append(resp, toSupplierResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/suppliers/:id
func GetSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		var supplier models.Supplier
		if err := database.DB.First(&supplier, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Proveedor no encontrado")
		}
		return c.JSON(toSupplierResponse(supplier))
	}
}

// PUT /api/suppliers/:id
func UpdateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		var supplier models.Supplier
		if err := database.DB.First(&supplier, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Proveedor no encontrado")
		}

		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		body.normalize()
		if err := api.Validate(body); err != nil {
			return err
		}

		supplier.Name = body.Name
		supplier.Type = body.Type
		supplier.Contact = body.Contact
		supplier.Phone = body.Phone
		supplier.Email = body.Email

		if err := database.DB.Save(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el proveedor")
		}
		return c.JSON(toSupplierResponse(supplier))
	}
}

// DELETE /api/suppliers/:id
func DeleteSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		var supplier models.Supplier
		if err := database.DB.First(&supplier, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Proveedor no encontrado")
		}

		var purchaseCount int64
		if err := database.DB.Model(&models.Purchase{}).Where("supplier_id = ?", supplier.ID).Count(&purchaseCount).Error; err != nil {
			return err
		}
		if purchaseCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "El proveedor tiene compras registradas")
		}

		if err := database.DB.Delete(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el proveedor")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
