package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CropActive    = "active"
	CropHarvested = "harvested"
	CropFailed    = "failed"
)

var growthStages = map[string]bool{
	"seedling": true, "vegetative": true, "flowering": true, "fruiting": true, "harvest": true,
}

func IsValidGrowthStage(s string) bool { return growthStages[s] }

func IsValidCropStatus(s string) bool {
	return s == CropActive || s == CropHarvested || s == CropFailed
}

type Crop struct {
	Base
	UserID              uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	ZoneID              *uuid.UUID `json:"zone_id" gorm:"type:uuid;index"`
	Name                string     `json:"name" gorm:"not null"`
	Variety             string     `json:"variety"`
	PlantingDate        *time.Time `json:"planting_date"`
	ExpectedHarvestDate *time.Time `json:"expected_harvest_date"`
	GrowthStage         string     `json:"growth_stage" gorm:"default:seedling"`
	Status              string     `json:"status" gorm:"default:active;index"`
	MoistureMin         *float64   `json:"moisture_min"`
	MoistureMax         *float64   `json:"moisture_max"`
	ImageURL            string     `json:"image_url"`
	Notes               string     `json:"notes"`

	Zone *Zone `json:"zone,omitempty" gorm:"foreignKey:ZoneID"`
}

type CropInput struct {
	ZoneID              OptionalUUID `json:"zone_id"`
	Name                *string      `json:"name"`
	Variety             *string      `json:"variety"`
	PlantingDate        *time.Time   `json:"planting_date"`
	ExpectedHarvestDate *time.Time   `json:"expected_harvest_date"`
	GrowthStage         *string      `json:"growth_stage"`
	Status              *string      `json:"status"`
	MoistureMin         *float64     `json:"moisture_min"`
	MoistureMax         *float64     `json:"moisture_max"`
	Notes               *string      `json:"notes"`
}
