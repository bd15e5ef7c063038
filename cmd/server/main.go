package main

import (
	"context"
	"strings"
	"time"

	"granja-backend/internal/api"
	"granja-backend/internal/auth"
	"granja-backend/internal/config"
	"granja-backend/internal/dashboard"
	"granja-backend/internal/database"
	"granja-backend/internal/farm"
	"granja-backend/internal/inventory"
	"granja-backend/internal/ledger"
	"granja-backend/internal/metrics"
	"granja-backend/internal/purchasing"
	"granja-backend/internal/trade"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	logger := config.GetLogger()
	database.Init(cfg)

	// cantidades y montos como números JSON, no como strings
	decimal.MarshalJSONWithoutQuotes = true

	m := metrics.New("granja")

	var locker ledger.Locker = ledger.NopLocker{}
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatalf("No se pudo conectar a Redis (%s): %v", cfg.RedisAddress, err)
		}
		locker = ledger.NewRedisLocker(rdb)
		logger.Infof("Lock distribuido de stock activo en %s", cfg.RedisAddress)
	}

	svc := ledger.NewService(database.DB, ledger.Options{
		Locker:     locker,
		MaxRetries: cfg.LedgerMaxRetries,
		LockTTL:    cfg.LedgerLockTTL,
		Logger:     logger,
		Metrics:    m,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler(logger),
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		ExposeHeaders: "X-Request-ID, Content-Disposition",
	}))
	app.Use(api.RequestID())
	app.Use(api.RequestLogger(logger, "/metrics", "/health"))
	app.Use(m.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	r := app.Group("/api")

	// Public auth
	r.Post("/auth/register", auth.RegisterHandler())
	r.Post("/auth/login", auth.LoginHandler(cfg.JWTSecret))

	// Protected
	protected := r.Group("", auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/users", auth.ListUsersHandler())

	// Proveedores y compras
	protected.Post("/suppliers", purchasing.CreateSupplierHandler())
	protected.Get("/suppliers", purchasing.ListSuppliersHandler())
	protected.Get("/suppliers/:id", purchasing.GetSupplierHandler())
	protected.Put("/suppliers/:id", purchasing.UpdateSupplierHandler())
	protected.Delete("/suppliers/:id", purchasing.DeleteSupplierHandler())

	protected.Post("/purchases", purchasing.CreatePurchaseHandler(svc))
	protected.Get("/purchases", purchasing.ListPurchasesHandler())
	protected.Get("/purchases/:id", purchasing.GetPurchaseHandler())
	protected.Put("/purchases/:id", purchasing.UpdatePurchaseHandler(svc))
	protected.Delete("/purchases/:id", purchasing.DeletePurchaseHandler(svc))

	// Clientes, ventas y pagos
	protected.Post("/clients", trade.CreateClientHandler())
	protected.Get("/clients", trade.ListClientsHandler())
	protected.Get("/clients/summary", trade.ClientSummaryHandler())
	protected.Get("/clients/:id", trade.GetClientHandler())
	protected.Put("/clients/:id", trade.UpdateClientHandler())
	protected.Delete("/clients/:id", trade.DeleteClientHandler())

	protected.Post("/sales", trade.CreateSaleHandler(svc))
	protected.Get("/sales", trade.ListSalesHandler())
	protected.Get("/sales/:id", trade.GetSaleHandler())
	protected.Get("/sales/:id/balance", trade.SaleBalanceHandler())
	protected.Put("/sales/:id", trade.UpdateSaleHandler(svc))
	protected.Delete("/sales/:id", trade.DeleteSaleHandler(svc))

	protected.Post("/payments", trade.CreatePaymentHandler())
	protected.Get("/payments", trade.ListPaymentsHandler())
	protected.Get("/payments/:id", trade.GetPaymentHandler())
	protected.Put("/payments/:id", trade.UpdatePaymentHandler())
	protected.Delete("/payments/:id", trade.DeletePaymentHandler())

	// Insumos y stock
	protected.Get("/supply-items/export", inventory.ExportStockHandler())
	protected.Post("/supply-items", inventory.CreateSupplyItemHandler(svc))
	protected.Get("/supply-items", inventory.ListSupplyItemsHandler())
	protected.Get("/supply-items/:id", inventory.GetSupplyItemHandler())
	protected.Get("/supply-items/:id/ledger", inventory.SupplyItemLedgerHandler(svc))
	protected.Put("/supply-items/:id", inventory.UpdateSupplyItemHandler(svc, false))
	protected.Patch("/supply-items/:id", inventory.UpdateSupplyItemHandler(svc, true))
	protected.Delete("/supply-items/:id", inventory.DeleteSupplyItemHandler())

	protected.Get("/production/totals", inventory.ProductionTotalsHandler())
	protected.Post("/production", inventory.CreateProductionHandler(svc))
	protected.Get("/production", inventory.ListProductionHandler())
	protected.Put("/production/:id", inventory.UpdateProductionHandler(svc))
	protected.Delete("/production/:id", inventory.DeleteProductionHandler(svc))

	protected.Get("/inventory/summary", inventory.MovementSummaryHandler())
	protected.Post("/inventory", inventory.CreateMovementHandler(svc))
	protected.Get("/inventory", inventory.ListMovementsHandler())
	protected.Put("/inventory/:id", inventory.UpdateMovementHandler(svc))
	protected.Delete("/inventory/:id", inventory.DeleteMovementHandler(svc))

	// Granja
	protected.Post("/sheds", farm.CreateShedHandler())
	protected.Get("/sheds", farm.ListShedsHandler())
	protected.Get("/sheds/occupancy", farm.ShedOccupancyHandler())
	protected.Get("/sheds/:id", farm.GetShedHandler())
	protected.Put("/sheds/:id", farm.UpdateShedHandler())
	protected.Delete("/sheds/:id", farm.DeleteShedHandler())

	protected.Post("/lots", farm.CreateLotHandler())
	protected.Get("/lots", farm.ListLotsHandler())
	protected.Get("/lots/:id", farm.GetLotHandler())
	protected.Put("/lots/:id", farm.UpdateLotHandler())
	protected.Delete("/lots/:id", farm.DeleteLotHandler())

	protected.Post("/breeders", farm.CreateBreederHandler())
	protected.Get("/breeders", farm.ListBreedersHandler())
	protected.Get("/breeders/:id", farm.GetBreederHandler())
	protected.Put("/breeders/:id", farm.UpdateBreederHandler())
	protected.Delete("/breeders/:id", farm.DeleteBreederHandler())

	protected.Post("/genealogy", farm.CreateGenealogyHandler())
	protected.Get("/genealogy", farm.ListGenealogyHandler())
	protected.Get("/genealogy/:id", farm.GetGenealogyHandler())
	protected.Put("/genealogy/:id", farm.UpdateGenealogyHandler())
	protected.Delete("/genealogy/:id", farm.DeleteGenealogyHandler())

	// Dashboard
	protected.Get("/dashboard/summary", dashboard.SummaryHandler())
	protected.Get("/dashboard/production-chart", dashboard.ProductionChartHandler())

	logger.Infof("Servidor escuchando en :%s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatalf("No se pudo iniciar el servidor: %v", err)
	}
}
