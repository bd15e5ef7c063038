package dashboard

import (
	"strconv"
	"time"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var now = time.Now

type ProductionChartPoint struct {
	Label  string                     `json:"label"` // día / inicio de semana / inicio de mes
	ByType map[string]decimal.Decimal `json:"by_type"`
	Total  decimal.Decimal            `json:"total"`
}

type ProductionChartResponse struct {
	Period      string                     `json:"period"` // daily | weekly | monthly
	From        string                     `json:"from"`
	To          string                     `json:"to"`
	Points      []ProductionChartPoint     `json:"points"`
	GrandTotals map[string]decimal.Decimal `json:"grand_totals"`
	Total       decimal.Decimal            `json:"total"`
}

func todayUTC() time.Time {
	y, m, d := now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// bucketStart lleva una fecha al inicio de su período; las semanas empiezan el lunes.
func bucketStart(period string, t time.Time) time.Time {
	switch period {
	case "weekly":
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

func nextBucket(period string, t time.Time) time.Time {
	switch period {
	case "weekly":
		return t.AddDate(0, 0, 7)
	case "monthly":
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// chartRange devuelve el inicio del primer período y el final exclusivo del último.
func chartRange(period string, count int) (time.Time, time.Time) {
	last := bucketStart(period, todayUTC())
	start := last
	for i := 1; i < count; i++ {
		switch period {
		case "weekly":
			start = start.AddDate(0, 0, -7)
		case "monthly":
			start = start.AddDate(0, -1, 0)
		default:
			start = start.AddDate(0, 0, -1)
		}
	}
	return start, nextBucket(period, last)
}

// GET /api/dashboard/production-chart?period=daily&count=7&shed_id=1
func ProductionChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		var count int
		switch period {
		case "weekly":
			count = 8
		case "monthly":
			count = 12
		case "daily":
			count = 7
		default:
			return fiber.NewError(fiber.StatusBadRequest, "period debe ser daily, weekly o monthly")
		}
		if s := c.Query("count"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 366 {
				return fiber.NewError(fiber.StatusBadRequest, "count inválido")
			}
			count = n
		}

		start, end := chartRange(period, count)

		q := database.DB.Model(&models.Production{}).Where("date >= ? AND date < ?", start, end)
		if shed := c.Query("shed_id"); shed != "" {
			q = q.Where("lot_id IN (SELECT id FROM lots WHERE shed_id = ?)", shed)
		}
		var rows []models.Production
		if err := q.Order("date asc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error al agrupar la producción")
		}

		points := make([]ProductionChartPoint, 0, count)
		index := make(map[time.Time]int, count)
		for b := start; b.Before(end); b = nextBucket(period, b) {
			index[b] = len(points)
			points = append(points, ProductionChartPoint{
				Label:  api.FormatDate(b),
				ByType: map[string]decimal.Decimal{},
				Total:  decimal.Zero,
			})
		}

		resp := ProductionChartResponse{
			Period:      period,
			From:        api.FormatDate(start),
			To:          api.FormatDate(end.AddDate(0, 0, -1)),
			GrandTotals: map[string]decimal.Decimal{},
			Total:       decimal.Zero,
		}
		for _, r := range rows {
			i, ok := index[bucketStart(period, r.Date.UTC())]
			if !ok {
				continue
			}
			p := &points[i]
			p.ByType[r.ProductType] = p.ByType[r.ProductType].Add(r.Quantity)
			p.Total = p.Total.Add(r.Quantity)
			resp.GrandTotals[r.ProductType] = resp.GrandTotals[r.ProductType].Add(r.Quantity)
			resp.Total = resp.Total.Add(r.Quantity)
		}
		resp.Points = points

		return c.JSON(resp)
	}
}
