package database

import (
	"granja-backend/internal/config"
	"granja-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	log := config.GetLogger()

	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("No se pudo conectar a la base de datos: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Error de AutoMigrate: %v", err)
	}

	log.Info("Conexión a la base de datos correcta. Migración completada.")
}

// Migrate creates or updates every table the API uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Supplier{},
		&models.Client{},
		&models.Shed{},
		&models.Lot{},
		&models.Breeder{},
		&models.Genealogy{},
		&models.SupplyItem{},
		&models.LedgerEvent{},
		&models.Purchase{},
		&models.Production{},
		&models.Sale{},
		&models.Payment{},
		&models.InventoryMovement{},
	)
}
