package models

import "time"

// Shed - Galpón
type Shed struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null;unique"`
	Capacity    int    `gorm:"not null"`
	Birds       int    `gorm:"not null"`
	Ventilation string `gorm:"size:30;not null"`
	Lighting    string `gorm:"size:30;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Lot - Lote de aves alojado en un galpón
type Lot struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Type      string `gorm:"size:40;not null"` // Gallinas, Gallos, Pollitos, Ponedoras...
	ShedID    uint   `gorm:"index;not null"`
	Shed      Shed   `gorm:"foreignKey:ShedID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Breeder - Reproductores (gallos) registrados por galpón
type Breeder struct {
	ID        uint      `gorm:"primaryKey"`
	Quantity  int       `gorm:"not null"`
	EntryDate time.Time `gorm:"not null"`
	Status    string    `gorm:"size:20;not null;index"`
	ShedID    uint      `gorm:"index;not null"`
	Shed      Shed      `gorm:"foreignKey:ShedID"`
	Notes     string    `gorm:"size:500"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Genealogy - Lotes parentales (gallinas x gallos) y el lote de pollitos resultante
type Genealogy struct {
	ID            uint   `gorm:"primaryKey"`
	HensLotID     uint   `gorm:"index;not null"`
	HensLot       Lot    `gorm:"foreignKey:HensLotID"`
	RoostersLotID uint   `gorm:"index;not null"`
	RoostersLot   Lot    `gorm:"foreignKey:RoostersLotID"`
	ChicksLot     string `gorm:"size:100;not null"`
	HatchShedID   uint   `gorm:"index;not null"`
	HatchShed     Shed   `gorm:"foreignKey:HatchShedID"`
	Notes         string `gorm:"size:500"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
