package purchasing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"granja-backend/internal/api"
	"granja-backend/internal/ledger"
	"granja-backend/internal/models"
	"granja-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	app *fiber.App
	db  *gorm.DB
	svc *ledger.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.UseGlobalDB(t, db)
	svc := ledger.NewService(db, ledger.Options{Logger: testutil.Logger()})

	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler(testutil.Logger())})
	app.Post("/api/suppliers", CreateSupplierHandler())
	app.Get("/api/suppliers", ListSuppliersHandler())
	app.Get("/api/suppliers/:id", GetSupplierHandler())
	app.Put("/api/suppliers/:id", UpdateSupplierHandler())
	app.Delete("/api/suppliers/:id", DeleteSupplierHandler())
	app.Post("/api/purchases", CreatePurchaseHandler(svc))
	app.Get("/api/purchases", ListPurchasesHandler())
	app.Get("/api/purchases/:id", GetPurchaseHandler())
	app.Put("/api/purchases/:id", UpdatePurchaseHandler(svc))
	app.Delete("/api/purchases/:id", DeletePurchaseHandler(svc))

	return &fixture{app: app, db: db, svc: svc}
}

func (f *fixture) supplier(t *testing.T, name string) uint {
	t.Helper()
	resp := testutil.Do(t, f.app, "POST", "/api/suppliers", SupplierRequest{
		Name:    name,
		Type:    "Alimentos",
		Contact: "Juan Pérez",
		Phone:   "+54 11 4444-5555",
		Email:   "ventas@" + name + ".com",
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))
	var s SupplierResponse
	resp.Decode(t, &s)
	return s.ID
}

func (f *fixture) item(t *testing.T, name string, qty int64) uint {
	t.Helper()
	item := &models.SupplyItem{Name: name, Type: "Alimento", Unit: "kg", QuantityOnHand: decimal.NewFromInt(qty)}
	err := f.svc.Execute(context.Background(), func(tx *gorm.DB) error {
		if err := ledger.NewRepository(tx).Create(context.Background(), item); err != nil {
			return err
		}
		_, err := f.svc.Open(context.Background(), tx, item, nil)
		return err
	})
	require.NoError(t, err)
	return item.ID
}

func (f *fixture) stock(t *testing.T, itemID uint) string {
	t.Helper()
	rec, err := f.svc.Reconcile(context.Background(), itemID)
	require.NoError(t, err)
	require.True(t, rec.Drift.IsZero(), "ledger drift %s", rec.Drift)
	return rec.Item.QuantityOnHand.String()
}

func purchase(supplierID, itemID uint, qty int64) PurchaseRequest {
	return PurchaseRequest{
		SupplierID:   supplierID,
		SupplyItemID: itemID,
		Date:         "2024-03-01",
		Quantity:     decimal.NewFromInt(qty),
		TotalPrice:   decimal.NewFromInt(qty * 3),
	}
}

func TestSupplierValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		edit  func(r *SupplierRequest)
		field string
	}{
		{"bad phone", func(r *SupplierRequest) { r.Phone = "12-ab" }, "phone"},
		{"bad email", func(r *SupplierRequest) { r.Email = "no-es-email" }, "email"},
		{"unknown type", func(r *SupplierRequest) { r.Type = "Juguetes" }, "type"},
		{"blank name", func(r *SupplierRequest) { r.Name = "   " }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := SupplierRequest{Name: "Agro SA", Type: "Vacunas", Contact: "Ana", Phone: "4444-5555", Email: "a@agro.com"}
			tt.edit(&req)
			resp := testutil.Do(t, f.app, "POST", "/api/suppliers", req)
			assert.Equal(t, fiber.StatusBadRequest, resp.Status)
			assert.Contains(t, resp.Map(t)["fields"], tt.field)
		})
	}
}

func TestSupplierCRUD(t *testing.T) {
	f := newFixture(t)
	id := f.supplier(t, "agromax")
	f.supplier(t, "vetsur")

	resp := testutil.Do(t, f.app, "GET", "/api/suppliers?q=VETS", nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	var list []SupplierResponse
	resp.Decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "vetsur", list[0].Name)

	resp = testutil.Do(t, f.app, "GET", "/api/suppliers?name=agromax", nil)
	resp.Decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	resp = testutil.Do(t, f.app, "GET", "/api/suppliers?ciudad=x", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	resp = testutil.Do(t, f.app, "PUT", fmt.Sprintf("/api/suppliers/%d", id), SupplierRequest{
		Name: "Agromax SRL", Type: "Equipos", Contact: "Luis", Phone: "011 4555 0000", Email: "LUIS@AGROMAX.COM",
	})
	require.Equal(t, fiber.StatusOK, resp.Status)
	var s SupplierResponse
	resp.Decode(t, &s)
	assert.Equal(t, "Agromax SRL", s.Name)
	assert.Equal(t, "luis@agromax.com", s.Email)

	resp = testutil.Do(t, f.app, "DELETE", fmt.Sprintf("/api/suppliers/%d", id), nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)

	resp = testutil.Do(t, f.app, "GET", fmt.Sprintf("/api/suppliers/%d", id), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestPurchaseLifecycleMovesStock(t *testing.T) {
	f := newFixture(t)
	supplierID := f.supplier(t, "agromax")
	alimento := f.item(t, "Alimento balanceado", 100)
	maiz := f.item(t, "Maíz", 10)

	resp := testutil.Do(t, f.app, "POST", "/api/purchases", purchase(supplierID, alimento, 50))
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))
	var created PurchaseResponse
	resp.Decode(t, &created)
	require.NotNil(t, created.StockAfter)
	assert.Equal(t, "150", *created.StockAfter)
	assert.Equal(t, "agromax", created.SupplierName)
	assert.True(t, decimal.NewFromInt(3).Equal(created.UnitPrice))
	assert.Equal(t, "150", f.stock(t, alimento))

	path := fmt.Sprintf("/api/purchases/%d", created.ID)

	resp = testutil.Do(t, f.app, "PUT", path, purchase(supplierID, alimento, 60))
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, "160", f.stock(t, alimento))

	resp = testutil.Do(t, f.app, "PUT", path, purchase(supplierID, maiz, 60))
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, "100", f.stock(t, alimento))
	assert.Equal(t, "70", f.stock(t, maiz))

	resp = testutil.Do(t, f.app, "GET", fmt.Sprintf("/api/purchases?supply_item_id=%d", maiz), nil)
	var list []PurchaseResponse
	resp.Decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Maíz", list[0].SupplyItemName)

	resp = testutil.Do(t, f.app, "GET", "/api/purchases?date=2024-03-01", nil)
	resp.Decode(t, &list)
	assert.Len(t, list, 1)

	resp = testutil.Do(t, f.app, "DELETE", fmt.Sprintf("/api/suppliers/%d", supplierID), nil)
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	resp = testutil.Do(t, f.app, "DELETE", path, nil)
	require.Equal(t, fiber.StatusNoContent, resp.Status)
	assert.Equal(t, "10", f.stock(t, maiz))

	resp = testutil.Do(t, f.app, "GET", path, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestDeletePurchaseClampsStockAtZero(t *testing.T) {
	f := newFixture(t)
	supplierID := f.supplier(t, "agromax")
	item := f.item(t, "Vacuna", 0)

	resp := testutil.Do(t, f.app, "POST", "/api/purchases", purchase(supplierID, item, 10))
	require.Equal(t, fiber.StatusCreated, resp.Status)
	var created PurchaseResponse
	resp.Decode(t, &created)

	// se consumió casi todo por fuera de la compra
	require.NoError(t, f.svc.Execute(context.Background(), func(tx *gorm.DB) error {
		_, err := f.svc.Adjust(context.Background(), tx, ledger.Adjustment{
			Event: ledger.Event{Kind: models.LedgerKindAdjustment, SupplyItemID: item, Quantity: decimal.NewFromInt(7)},
			Mode:  models.LedgerModeApply,
		})
		return err
	}))
	assert.Equal(t, "3", f.stock(t, item))

	resp = testutil.Do(t, f.app, "DELETE", fmt.Sprintf("/api/purchases/%d", created.ID), nil)
	require.Equal(t, fiber.StatusNoContent, resp.Status)
	assert.Equal(t, "0", f.stock(t, item))
}

func TestPurchaseRejections(t *testing.T) {
	f := newFixture(t)
	supplierID := f.supplier(t, "agromax")
	item := f.item(t, "Maíz", 10)

	resp := testutil.Do(t, f.app, "POST", "/api/purchases", purchase(supplierID, 999, 5))
	assert.Equal(t, fiber.StatusNotFound, resp.Status)

	resp = testutil.Do(t, f.app, "POST", "/api/purchases", purchase(999, item, 5))
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	bad := purchase(supplierID, item, 5)
	bad.Quantity = decimal.Zero
	resp = testutil.Do(t, f.app, "POST", "/api/purchases", bad)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Map(t)["fields"], "quantity")

	future := purchase(supplierID, item, 5)
	future.Date = time.Now().AddDate(0, 0, 3).Format(api.DateLayout)
	resp = testutil.Do(t, f.app, "POST", "/api/purchases", future)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	var count int64
	require.NoError(t, f.db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, "10", f.stock(t, item))
}
