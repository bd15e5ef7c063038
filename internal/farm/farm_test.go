package farm

import (
	"fmt"
	"testing"
	"time"

	"granja-backend/internal/api"
	"granja-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	testutil.UseGlobalDB(t, testutil.NewDB(t))

	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler(testutil.Logger())})
	sheds := app.Group("/api/sheds")
	sheds.Post("/", CreateShedHandler())
	sheds.Get("/", ListShedsHandler())
	sheds.Get("/occupancy", ShedOccupancyHandler())
	sheds.Get("/:id", GetShedHandler())
	sheds.Put("/:id", UpdateShedHandler())
	sheds.Delete("/:id", DeleteShedHandler())

	lots := app.Group("/api/lots")
	lots.Post("/", CreateLotHandler())
	lots.Get("/", ListLotsHandler())
	lots.Get("/:id", GetLotHandler())
	lots.Put("/:id", UpdateLotHandler())
	lots.Delete("/:id", DeleteLotHandler())

	breeders := app.Group("/api/breeders")
	breeders.Post("/", CreateBreederHandler())
	breeders.Get("/", ListBreedersHandler())
	breeders.Get("/:id", GetBreederHandler())
	breeders.Put("/:id", UpdateBreederHandler())
	breeders.Delete("/:id", DeleteBreederHandler())

	genealogy := app.Group("/api/genealogy")
	genealogy.Post("/", CreateGenealogyHandler())
	genealogy.Get("/", ListGenealogyHandler())
	genealogy.Get("/:id", GetGenealogyHandler())
	genealogy.Put("/:id", UpdateGenealogyHandler())
	genealogy.Delete("/:id", DeleteGenealogyHandler())
	return app
}

func createShed(t *testing.T, app *fiber.App, name string, capacity, birds int) ShedResponse {
	t.Helper()
	resp := testutil.Do(t, app, "POST", "/api/sheds", ShedRequest{
		Name: name, Capacity: capacity, Birds: birds, Ventilation: "Mecánica", Lighting: "LED",
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))
	var s ShedResponse
	resp.Decode(t, &s)
	return s
}

func createLot(t *testing.T, app *fiber.App, name, typ string, shedID uint) uint {
	t.Helper()
	resp := testutil.Do(t, app, "POST", "/api/lots", LotRequest{Name: name, Type: typ, ShedID: shedID})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))
	var l LotResponse
	resp.Decode(t, &l)
	return l.ID
}

func TestOccupancyLevels(t *testing.T) {
	tests := []struct {
		birds, capacity int
		pct             int
		level           string
	}{
		{1950, 2000, 98, "critica"},
		{2950, 3000, 98, "critica"},
		{1600, 2000, 80, "alta"},
		{1500, 2000, 75, "normal"},
		{0, 0, 0, "normal"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.birds, tt.capacity), func(t *testing.T) {
			pct := Occupancy(tt.birds, tt.capacity)
			assert.Equal(t, tt.pct, pct)
			assert.Equal(t, tt.level, OccupancyLevel(pct))
		})
	}
}

func TestShedValidation(t *testing.T) {
	app := newApp(t)

	tests := []struct {
		name  string
		edit  func(r *ShedRequest)
		field string
	}{
		{"capacity over max", func(r *ShedRequest) { r.Capacity = MaxShedCapacity + 1 }, "capacity"},
		{"capacity zero", func(r *ShedRequest) { r.Capacity = 0; r.Birds = 0 }, "capacity"},
		{"birds over capacity", func(r *ShedRequest) { r.Birds = r.Capacity + 1 }, "birds"},
		{"unknown ventilation", func(r *ShedRequest) { r.Ventilation = "Eólica" }, "ventilation"},
		{"unknown lighting", func(r *ShedRequest) { r.Lighting = "Neón" }, "lighting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ShedRequest{Name: "Galpón 1", Capacity: 2000, Birds: 1500, Ventilation: "Natural", Lighting: "Natural"}
			tt.edit(&req)
			resp := testutil.Do(t, app, "POST", "/api/sheds", req)
			assert.Equal(t, fiber.StatusBadRequest, resp.Status)
			assert.Contains(t, resp.Map(t)["fields"], tt.field)
		})
	}
}

func TestShedCRUDAndOccupancy(t *testing.T) {
	app := newApp(t)
	g1 := createShed(t, app, "Galpón 1", 2000, 1950)
	createShed(t, app, "Galpón 2", 3000, 1000)

	assert.Equal(t, 98, g1.Occupancy)
	assert.Equal(t, "critica", g1.Level)

	resp := testutil.Do(t, app, "POST", "/api/sheds", ShedRequest{
		Name: "galpón 1", Capacity: 100, Birds: 10, Ventilation: "Natural", Lighting: "LED",
	})
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	resp = testutil.Do(t, app, "GET", "/api/sheds/occupancy", nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	var sum OccupancySummary
	resp.Decode(t, &sum)
	assert.Equal(t, 2, sum.Sheds)
	assert.Equal(t, 2950, sum.TotalBirds)
	assert.Equal(t, 5000, sum.TotalCapacity)
	assert.Equal(t, 59, sum.Occupancy)
	require.Len(t, sum.Alerts, 1)
	assert.Equal(t, g1.ID, sum.Alerts[0].ID)

	resp = testutil.Do(t, app, "PUT", fmt.Sprintf("/api/sheds/%d", g1.ID), ShedRequest{
		Name: "Galpón 1", Capacity: 2000, Birds: 1000, Ventilation: "Automatizada", Lighting: "LED",
	})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))
	var s ShedResponse
	resp.Decode(t, &s)
	assert.Equal(t, "normal", s.Level)

	resp = testutil.Do(t, app, "GET", "/api/sheds?lighting=LED", nil)
	var list []ShedResponse
	resp.Decode(t, &list)
	assert.Len(t, list, 2)

	createLot(t, app, "Lote Gallinas 2024-01", LotTypeHens, g1.ID)
	resp = testutil.Do(t, app, "DELETE", fmt.Sprintf("/api/sheds/%d", g1.ID), nil)
	assert.Equal(t, fiber.StatusConflict, resp.Status)
}

func TestLots(t *testing.T) {
	app := newApp(t)
	shed := createShed(t, app, "Galpón 1", 2000, 100)

	resp := testutil.Do(t, app, "POST", "/api/lots", LotRequest{Name: "Lote X", Type: "Gallinas", ShedID: 999})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	id := createLot(t, app, "Lote Gallinas 2024-01", LotTypeHens, shed.ID)
	createLot(t, app, "Lote Gallos 2024-01", LotTypeRoosters, shed.ID)

	resp = testutil.Do(t, app, "GET", "/api/lots?type=Gallos", nil)
	var list []LotResponse
	resp.Decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Galpón 1", list[0].ShedName)

	resp = testutil.Do(t, app, "PUT", fmt.Sprintf("/api/lots/%d", id), LotRequest{Name: "Lote Ponedoras", Type: "Ponedoras", ShedID: shed.ID})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))

	resp = testutil.Do(t, app, "DELETE", fmt.Sprintf("/api/lots/%d", id), nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)
	resp = testutil.Do(t, app, "GET", fmt.Sprintf("/api/lots/%d", id), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestBreedersOneActivePerShed(t *testing.T) {
	app := newApp(t)
	shed := createShed(t, app, "Galpón 2", 3000, 100)

	req := BreederRequest{Quantity: 40, EntryDate: "2024-01-15", Status: "activo", ShedID: shed.ID}
	resp := testutil.Do(t, app, "POST", "/api/breeders", req)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))
	var first BreederResponse
	resp.Decode(t, &first)

	resp = testutil.Do(t, app, "POST", "/api/breeders", req)
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	sick := req
	sick.Status = "enfermo"
	sick.Quantity = 3
	resp = testutil.Do(t, app, "POST", "/api/breeders", sick)
	require.Equal(t, fiber.StatusCreated, resp.Status)

	// el propio registro activo puede editarse
	req.Quantity = 38
	resp = testutil.Do(t, app, "PUT", fmt.Sprintf("/api/breeders/%d", first.ID), req)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))

	future := req
	future.EntryDate = time.Now().AddDate(0, 0, 2).Format(api.DateLayout)
	resp = testutil.Do(t, app, "PUT", fmt.Sprintf("/api/breeders/%d", first.ID), future)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Map(t)["fields"], "entry_date")

	bad := req
	bad.Quantity = 0
	resp = testutil.Do(t, app, "POST", "/api/breeders", bad)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	resp = testutil.Do(t, app, "GET", "/api/breeders?status=activo", nil)
	var list []BreederResponse
	resp.Decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 38, list[0].Quantity)

	resp = testutil.Do(t, app, "DELETE", fmt.Sprintf("/api/breeders/%d", first.ID), nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)
	resp = testutil.Do(t, app, "DELETE", fmt.Sprintf("/api/breeders/%d", first.ID), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestGenealogy(t *testing.T) {
	app := newApp(t)
	shed := createShed(t, app, "Galpón 1", 2000, 100)
	hatch := createShed(t, app, "Incubadora", 500, 0)
	hens := createLot(t, app, "Lote Gallinas 2024-01", LotTypeHens, shed.ID)
	roosters := createLot(t, app, "Lote Gallos 2024-01", LotTypeRoosters, shed.ID)

	resp := testutil.Do(t, app, "POST", "/api/genealogy", GenealogyRequest{
		HensLotID: hens, RoostersLotID: hens, ChicksLot: "Pollitos 2024-03", HatchShedID: hatch.ID,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Map(t)["fields"], "roosters_lot_id")

	resp = testutil.Do(t, app, "POST", "/api/genealogy", GenealogyRequest{
		HensLotID: roosters, RoostersLotID: hens, ChicksLot: "Pollitos 2024-03", HatchShedID: hatch.ID,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	resp = testutil.Do(t, app, "POST", "/api/genealogy", GenealogyRequest{
		HensLotID: hens, RoostersLotID: roosters, ChicksLot: "Pollitos 2024-03", HatchShedID: hatch.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))
	var g GenealogyResponse
	resp.Decode(t, &g)
	assert.Equal(t, "Lote Gallinas 2024-01", g.HensLotName)
	assert.Equal(t, "Lote Gallos 2024-01", g.RoostersLotName)
	assert.Equal(t, "Incubadora", g.HatchShedName)

	resp = testutil.Do(t, app, "DELETE", fmt.Sprintf("/api/lots/%d", hens), nil)
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	resp = testutil.Do(t, app, "GET", fmt.Sprintf("/api/genealogy?hatch_shed_id=%d", hatch.ID), nil)
	var list []GenealogyResponse
	resp.Decode(t, &list)
	assert.Len(t, list, 1)

	resp = testutil.Do(t, app, "DELETE", fmt.Sprintf("/api/genealogy/%d", g.ID), nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)
}
