package trade

import (
	"errors"
	"fmt"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRequest struct {
	SaleID    uint            `json:"sale_id" validate:"required"`
	Date      string          `json:"date" validate:"required,date,notfuture"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0,decimals=2"`
	Method    string          `json:"method" validate:"required,oneof=Efectivo Transferencia Tarjeta"`
	Reference string          `json:"reference" validate:"max=100"`
}

type PaymentResponse struct {
	ID        uint            `json:"id"`
	SaleID    uint            `json:"sale_id"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	CreatedAt string          `json:"created_at"`
}

var paymentFilters = map[string]api.Filter{
	"id":      {Column: "id"},
	"sale_id": {Column: "sale_id"},
	"method":  {Column: "method"},
	"date":    {Column: "date", Date: true},
}

func toPaymentResponse(p models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		SaleID:    p.SaleID,
		Date:      api.FormatDate(p.Date),
		Amount:    p.Amount,
		Method:    p.Method,
		Reference: p.Reference,
		CreatedAt: api.FormatTimestamp(p.CreatedAt),
	}
}

// paidForSale suma los pagos de una venta, excluyendo opcionalmente uno (edición).
func paidForSale(tx *gorm.DB, saleID uint, exclude ...uint) (decimal.Decimal, int64, error) {
	q := tx.Where("sale_id = ?", saleID)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var payments []models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return decimal.Zero, 0, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, int64(len(payments)), nil
}

func parsePayment(c *fiber.Ctx) (*models.Payment, error) {
	var body PaymentRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.Reference = strings.TrimSpace(body.Reference)
	if err := api.Validate(body); err != nil {
		return nil, err
	}
	date, err := api.ParseDate(body.Date)
	if err != nil {
		return nil, err
	}
	return &models.Payment{
		SaleID:    body.SaleID,
		Date:      date,
		Amount:    body.Amount,
		Method:    body.Method,
		Reference: body.Reference,
	}, nil
}

// checkPaymentFits verifica que la venta exista y que el pago no supere el saldo.
func checkPaymentFits(tx *gorm.DB, p *models.Payment, exclude ...uint) error {
	var sale models.Sale
	if err := tx.First(&sale, p.SaleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Venta no encontrada")
		}
		return err
	}
	paid, _, err := paidForSale(tx, sale.ID, exclude...)
	if err != nil {
		return err
	}
	if paid.Add(p.Amount).GreaterThan(sale.Total) {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("El total pagado (%s) no puede superar el total de la venta (%s)", paid.Add(p.Amount).StringFixed(2), sale.Total.StringFixed(2)))
	}
	return nil
}

// POST /api/payments
func CreatePaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := parsePayment(c)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := checkPaymentFits(tx, p); err != nil {
				return err
			}
			return tx.Create(p).Error
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(toPaymentResponse(*p))
	}
}

// GET /api/payments?sale_id=1
func ListPaymentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.Payment{}), paymentFilters)
		if err != nil {
			return err
		}

		var payments []models.Payment
		if err := q.Order("date desc, id desc").Find(&payments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los pagos")
		}

		resp := make([]PaymentResponse, 0, len(payments))
		for _, p := range payments {
			resp = append(resp, toPaymentResponse(p))
		}
		return c.JSON(resp)
	}
}

// GET /api/payments/:id
func GetPaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		var p models.Payment
		if err := database.DB.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Pago no encontrado")
			}
			return err
		}
		return c.JSON(toPaymentResponse(p))
	}
}

// PUT /api/payments/:id
func UpdatePaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		next, err := parsePayment(c)
		if err != nil {
			return err
		}

		var p models.Payment
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&p, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Pago no encontrado")
				}
				return err
			}
			if err := checkPaymentFits(tx, next, p.ID); err != nil {
				return err
			}
			p.SaleID = next.SaleID
			p.Date = next.Date
			p.Amount = next.Amount
			p.Method = next.Method
			p.Reference = next.Reference
			return tx.Omit("Sale").Save(&p).Error
		})
		if err != nil {
			return err
		}

		return c.JSON(toPaymentResponse(p))
	}
}

// DELETE /api/payments/:id
func DeletePaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		res := database.DB.Delete(&models.Payment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Pago no encontrado")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
