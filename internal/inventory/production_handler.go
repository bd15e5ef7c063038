package inventory

import (
	"errors"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/auth"
	"granja-backend/internal/database"
	"granja-backend/internal/ledger"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productionSource = "production"

// ProductionRequest: supply_item_id es opcional; sin él el producto se busca
// por nombre y, si no existe, se crea el insumo.
type ProductionRequest struct {
	Date         string          `json:"date" validate:"required,date,notfuture"`
	LotID        uint            `json:"lot_id" validate:"required"`
	ProductType  string          `json:"product_type" validate:"required,max=120"`
	SupplyItemID uint            `json:"supply_item_id"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0,decimals=3"`
	Notes        string          `json:"notes" validate:"max=500"`
}

type ProductionResponse struct {
	ID                    uint            `json:"id"`
	Date                  string          `json:"date"`
	LotID                 uint            `json:"lot_id"`
	LotName               string          `json:"lot_name"`
	ShedID                uint            `json:"shed_id"`
	ProductType           string          `json:"product_type"`
	SupplyItemID          uint            `json:"supply_item_id"`
	Quantity              decimal.Decimal `json:"quantity"`
	Notes                 string          `json:"notes"`
	SupplyItemProvisioned bool            `json:"supply_item_provisioned,omitempty"`
}

type ProductionTypeTotal struct {
	ProductType string          `json:"product_type"`
	Quantity    decimal.Decimal `json:"quantity"`
}

type ProductionTotalsResponse struct {
	Total  decimal.Decimal       `json:"total"`
	ByType []ProductionTypeTotal `json:"by_type"`
}

var productionFilters = map[string]api.Filter{
	"id":             {Column: "id"},
	"lot_id":         {Column: "lot_id"},
	"product_type":   {Column: "product_type"},
	"supply_item_id": {Column: "supply_item_id"},
	"date":           {Column: "date", Date: true},
	"shed_id":        {Expr: "lot_id IN (SELECT id FROM lots WHERE shed_id = ?)"},
}

func toProductionResponse(p models.Production) ProductionResponse {
	return ProductionResponse{
		ID:           p.ID,
		Date:         api.FormatDate(p.Date),
		LotID:        p.LotID,
		LotName:      p.Lot.Name,
		ShedID:       p.Lot.ShedID,
		ProductType:  p.ProductType,
		SupplyItemID: p.SupplyItemID,
		Quantity:     p.Quantity,
		Notes:        p.Notes,
	}
}

func productionEvent(c *fiber.Ctx, p *models.Production) ledger.Event {
	return ledger.Event{
		Kind:         models.LedgerKindProduction,
		SupplyItemID: p.SupplyItemID,
		ProductName:  p.ProductType,
		Quantity:     p.Quantity,
		SourceType:   productionSource,
		SourceID:     &p.ID,
		Reason:       "Producción",
		UserID:       auth.UserID(c),
	}
}

func loadProduction(tx *gorm.DB, id uint) (*models.Production, error) {
	var p models.Production
	if err := tx.Preload("Lot").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Producción no encontrada")
		}
		return nil, err
	}
	return &p, nil
}

func requireLot(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Lot{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Lote no encontrado")
	}
	return nil
}

func parseProduction(c *fiber.Ctx) (*ProductionRequest, error) {
	var body ProductionRequest
	if err := c.BodyParser(&body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	body.ProductType = strings.TrimSpace(body.ProductType)
	body.Notes = strings.TrimSpace(body.Notes)
	if err := api.Validate(body); err != nil {
		return nil, err
	}
	return &body, nil
}

func productionLockKeys(body *ProductionRequest, previousItemID uint) []string {
	keys := []string{ledger.NameKey(body.ProductType)}
	if body.SupplyItemID != 0 {
		keys = append(keys, ledger.ItemKey(body.SupplyItemID))
	}
	if previousItemID != 0 {
		keys = append(keys, ledger.ItemKey(previousItemID))
	}
	return keys
}

// POST /api/production
func CreateProductionHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseProduction(c)
		if err != nil {
			return err
		}
		date, err := api.ParseDate(body.Date)
		if err != nil {
			return err
		}

		var created *models.Production
		var provisioned bool
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			if err := requireLot(tx, body.LotID); err != nil {
				return err
			}

			p := models.Production{
				Date:         date,
				LotID:        body.LotID,
				ProductType:  body.ProductType,
				SupplyItemID: body.SupplyItemID,
				Quantity:     body.Quantity,
				Notes:        body.Notes,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}

			res, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: productionEvent(c, &p), Mode: models.LedgerModeApply})
			if err != nil {
				return err
			}
			provisioned = res.Provisioned

			// el insumo queda fijado en el registro; ediciones y borrados no vuelven a buscar por nombre
			if err := tx.Model(&p).Update("supply_item_id", res.Item.ID).Error; err != nil {
				return err
			}

			created, err = loadProduction(tx, p.ID)
			return err
		}, productionLockKeys(body, 0)...)
		if err != nil {
			return api.FromLedger(err)
		}

		resp := toProductionResponse(*created)
		resp.SupplyItemProvisioned = provisioned
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/production?lot_id=1&product_type=huevo&shed_id=2&q=...
func ListProductionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := productionQuery(c)
		if err != nil {
			return err
		}

		var records []models.Production
		if err := q.Preload("Lot").Order("date desc, id desc").Find(&records).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo listar la producción")
		}

		resp := make([]ProductionResponse, 0, len(records))
		for _, p := range records {
			resp = append(resp, toProductionResponse(p))
		}
		return c.JSON(resp)
	}
}

func productionQuery(c *fiber.Ctx) (*gorm.DB, error) {
	q, err := api.ApplyFilters(c, database.DB.Model(&models.Production{}), productionFilters, "q")
	if err != nil {
		return nil, err
	}
	if term := strings.ToLower(strings.TrimSpace(c.Query("q"))); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(product_type) LIKE ? OR LOWER(notes) LIKE ?", like, like)
	}
	return q, nil
}

// GET /api/production/totals acepta los mismos filtros que el listado.
func ProductionTotalsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := productionQuery(c)
		if err != nil {
			return err
		}

		var rows []ProductionTypeTotal
		if err := q.Select("product_type, SUM(quantity) AS quantity").
			Group("product_type").
			Order("product_type asc").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron calcular los totales")
		}

		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.Quantity)
		}
		if rows == nil {
			rows = []ProductionTypeTotal{}
		}
		return c.JSON(ProductionTotalsResponse{Total: total, ByType: rows})
	}
}

// PUT /api/production/:id
func UpdateProductionHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		body, err := parseProduction(c)
		if err != nil {
			return err
		}
		date, err := api.ParseDate(body.Date)
		if err != nil {
			return err
		}
		current, err := loadProduction(database.DB, id)
		if err != nil {
			return err
		}

		var updated *models.Production
		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			p, err := loadProduction(tx, id)
			if err != nil {
				return err
			}
			if p.LotID != body.LotID {
				if err := requireLot(tx, body.LotID); err != nil {
					return err
				}
			}
			old := productionEvent(c, p)

			switch {
			case body.SupplyItemID != 0:
				p.SupplyItemID = body.SupplyItemID
			case !strings.EqualFold(p.ProductType, body.ProductType):
				// otro nombre: puede seguir siendo el mismo insumo; 0 si hay que crearlo
				p.SupplyItemID, err = svc.ResolveItemID(c.UserContext(), tx, ledger.Event{ProductName: body.ProductType})
				if err != nil {
					return err
				}
			}
			p.Date = date
			p.LotID = body.LotID
			p.ProductType = body.ProductType
			p.Quantity = body.Quantity
			p.Notes = body.Notes

			results, err := svc.Replace(c.UserContext(), tx, old, productionEvent(c, p))
			if err != nil {
				return err
			}
			if len(results) > 0 {
				p.SupplyItemID = results[len(results)-1].Item.ID
			}
			if err := tx.Omit("Lot").Save(p).Error; err != nil {
				return err
			}

			updated, err = loadProduction(tx, id)
			return err
		}, productionLockKeys(body, current.SupplyItemID)...)
		if err != nil {
			return api.FromLedger(err)
		}

		return c.JSON(toProductionResponse(*updated))
	}
}

// DELETE /api/production/:id
func DeleteProductionHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c)
		if err != nil {
			return err
		}
		current, err := loadProduction(database.DB, id)
		if err != nil {
			return err
		}

		err = svc.Execute(c.UserContext(), func(tx *gorm.DB) error {
			p, err := loadProduction(tx, id)
			if err != nil {
				return err
			}
			ev := productionEvent(c, p)
			ev.Reason = "Producción eliminada"
			if _, err := svc.Adjust(c.UserContext(), tx, ledger.Adjustment{Event: ev, Mode: models.LedgerModeReverse}); err != nil {
				return err
			}
			return tx.Delete(&models.Production{}, p.ID).Error
		}, ledger.ItemKey(current.SupplyItemID))
		if err != nil {
			return api.FromLedger(err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
