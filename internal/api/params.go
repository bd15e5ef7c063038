package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ParamID reads the :id route parameter.
func ParamID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "id inválido")
	}
	return uint(id), nil
}

// ParseDate parses a date already checked by the "date" tag.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "La fecha debe tener el formato YYYY-MM-DD")
	}
	return d, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// Filter maps an allowed query parameter to its column. Date columns take
// YYYY-MM-DD values and match the whole day. Expr replaces the default
// "column = ?" condition and receives the value as its only argument.
type Filter struct {
	Column string
	Date   bool
	Expr   string
}

// ApplyFilters adds an exact-match condition for each query parameter in
// allowed. Unknown parameters are rejected so a typo never returns the whole
// collection.
func ApplyFilters(c *fiber.Ctx, q *gorm.DB, allowed map[string]Filter, ignore ...string) (*gorm.DB, error) {
	skip := make(map[string]bool, len(ignore))
	for _, k := range ignore {
		skip[k] = true
	}

	var err error
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		if err != nil {
			return
		}
		k := string(key)
		if skip[k] {
			return
		}
		f, ok := allowed[k]
		if !ok {
			err = fiber.NewError(fiber.StatusBadRequest, "Filtro no permitido: "+k)
			return
		}
		v := string(value)
		if f.Expr != "" {
			q = q.Where(f.Expr, v)
			return
		}
		if f.Date {
			d, perr := ParseDate(v)
			if perr != nil {
				err = perr
				return
			}
			q = q.Where(f.Column+" >= ? AND "+f.Column+" < ?", d, d.AddDate(0, 0, 1))
			return
		}
		q = q.Where(f.Column+" = ?", v)
	})
	return q, err
}
