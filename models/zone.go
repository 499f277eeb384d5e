package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Zone struct {
	Base
	UserID       uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	Name         string         `json:"name" gorm:"not null"`
	Description  string         `json:"description"`
	AreaHectares float64        `json:"area_hectares"`
	SoilType     string         `json:"soil_type"`
	Latitude     *float64       `json:"latitude"`
	Longitude    *float64       `json:"longitude"`
	Boundary     datatypes.JSON `json:"boundary" gorm:"type:jsonb"`
	Color        string         `json:"color"`
	IsActive     bool           `json:"is_active"`

	Devices []Device `json:"devices,omitempty" gorm:"foreignKey:ZoneID"`
	Crops   []Crop   `json:"crops,omitempty" gorm:"foreignKey:ZoneID"`
}

type ZoneInput struct {
	Name         *string         `json:"name"`
	Description  *string         `json:"description"`
	AreaHectares *float64        `json:"area_hectares"`
	SoilType     *string         `json:"soil_type"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
	Boundary     *datatypes.JSON `json:"boundary"`
	Color        *string         `json:"color"`
	IsActive     *bool           `json:"is_active"`
}
