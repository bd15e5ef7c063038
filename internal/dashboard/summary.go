package dashboard

import (
	"strconv"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/farm"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultLowStock = 10

type Counts struct {
	Sheds       int64 `json:"sheds"`
	Lots        int64 `json:"lots"`
	Breeders    int64 `json:"breeders"`
	Clients     int64 `json:"clients"`
	Suppliers   int64 `json:"suppliers"`
	SupplyItems int64 `json:"supply_items"`
}

type LowStockItem struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
}

type SummaryResponse struct {
	From          string          `json:"from"`
	To            string          `json:"to"`
	Counts        Counts          `json:"counts"`
	TotalBirds    int64           `json:"total_birds"`
	TotalCapacity int64           `json:"total_capacity"`
	Occupancy     int             `json:"occupancy"`
	Production    decimal.Decimal `json:"production"`
	Sales         decimal.Decimal `json:"sales"`
	Purchases     decimal.Decimal `json:"purchases"`
	Collected     decimal.Decimal `json:"collected"`
	Receivable    decimal.Decimal `json:"receivable"`
	LowStock      []LowStockItem  `json:"low_stock"`
	Alerts        int             `json:"alerts"`
}

// sumColumn suma en Go una columna decimal de las filas de q.
func sumColumn(q *gorm.DB, column string) (decimal.Decimal, error) {
	var values []decimal.Decimal
	if err := q.Pluck(column, &values).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total, nil
}

// GET /api/dashboard/summary?from=2024-05-01&to=2024-05-31&low_stock=10
// Sin fechas se toman los últimos 30 días.
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		to := todayUTC()
		from := to.AddDate(0, 0, -29)
		if s := c.Query("from"); s != "" {
			d, err := api.ParseDate(s)
			if err != nil {
				return err
			}
			from = d
		}
		if s := c.Query("to"); s != "" {
			d, err := api.ParseDate(s)
			if err != nil {
				return err
			}
			to = d
		}
		if to.Before(from) {
			return fiber.NewError(fiber.StatusBadRequest, "La fecha final no puede ser anterior a la inicial")
		}
		threshold := decimal.NewFromInt(defaultLowStock)
		if s := c.Query("low_stock"); s != "" {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil || n < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "low_stock inválido")
			}
			threshold = decimal.NewFromFloat(n)
		}
		end := to.AddDate(0, 0, 1)
		db := database.DB

		resp := SummaryResponse{From: api.FormatDate(from), To: api.FormatDate(to)}

		counts := []struct {
			model interface{}
			dst   *int64
		}{
			{&models.Shed{}, &resp.Counts.Sheds},
			{&models.Lot{}, &resp.Counts.Lots},
			{&models.Breeder{}, &resp.Counts.Breeders},
			{&models.Client{}, &resp.Counts.Clients},
			{&models.Supplier{}, &resp.Counts.Suppliers},
			{&models.SupplyItem{}, &resp.Counts.SupplyItems},
		}
		for _, ct := range counts {
			if err := db.Model(ct.model).Count(ct.dst).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen")
			}
		}

		var sheds []models.Shed
		if err := db.Find(&sheds).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen")
		}
		for _, s := range sheds {
			resp.TotalBirds += int64(s.Birds)
			resp.TotalCapacity += int64(s.Capacity)
			if farm.OccupancyLevel(farm.Occupancy(s.Birds, s.Capacity)) == "critica" {
				resp.Alerts++
			}
		}
		resp.Occupancy = farm.Occupancy(int(resp.TotalBirds), int(resp.TotalCapacity))

		var err error
		inRange := func(m interface{}) *gorm.DB {
			return db.Model(m).Where("date >= ? AND date < ?", from, end)
		}
		if resp.Production, err = sumColumn(inRange(&models.Production{}), "quantity"); err != nil {
			return err
		}
		if resp.Sales, err = sumColumn(inRange(&models.Sale{}).Where("status <> ?", "Cancelado"), "total"); err != nil {
			return err
		}
		if resp.Purchases, err = sumColumn(inRange(&models.Purchase{}), "total_price"); err != nil {
			return err
		}
		if resp.Collected, err = sumColumn(inRange(&models.Payment{}), "amount"); err != nil {
			return err
		}

		// saldo pendiente de todas las ventas no canceladas, sin filtro de fechas
		allSales, err := sumColumn(db.Model(&models.Sale{}).Where("status <> ?", "Cancelado"), "total")
		if err != nil {
			return err
		}
		allPaid, err := sumColumn(db.Model(&models.Payment{}).
			Where("sale_id IN (SELECT id FROM sales WHERE status <> ?)", "Cancelado"), "amount")
		if err != nil {
			return err
		}
		resp.Receivable = allSales.Sub(allPaid)

		var items []models.SupplyItem
		if err := db.Where("quantity_on_hand < ?", threshold).Order("quantity_on_hand asc, name asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen")
		}
		resp.LowStock = make([]LowStockItem, 0, len(items))
		for _, it := range items {
			resp.LowStock = append(resp.LowStock, LowStockItem{
				ID: it.ID, Name: it.Name, Unit: it.Unit, QuantityOnHand: it.QuantityOnHand,
			})
		}
		resp.Alerts += len(resp.LowStock)

		return c.JSON(resp)
	}
}
