package models

import "time"

type Supplier struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null"`
	Type      string `gorm:"size:40;not null;index"`
	Contact   string `gorm:"size:120;not null"`
	Phone     string `gorm:"size:40;not null"`
	Email     string `gorm:"size:120;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Client struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null"`
	Type      string `gorm:"size:40;not null;index"`
	Contact   string `gorm:"size:120;not null"` // teléfono o email
	Address   string `gorm:"size:255;not null"`
	UserID    uint   `gorm:"index;not null"` // vendedor asignado
	User      User   `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
