package controllers

import (
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
)

func ListCrops(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.Crop{}))
	if z := c.Query("zone_id"); z != "" {
		q = q.Where("zone_id = ?", z)
	}
	if s := c.Query("status"); s != "" {
		q = q.Where("status = ?", s)
	}
	var crops []models.Crop
	paginate(c, q.Preload("Zone").Order("created_at DESC"), &crops, "crop")
}

func GetCrop(c *gin.Context) {
	var crop models.Crop
	if !findOwned(c, &crop, "crop") {
		return
	}
	c.JSON(http.StatusOK, crop)
}

func applyCropInput(cr *models.Crop, in *models.CropInput) string {
	if in.ZoneID.Set {
		cr.ZoneID = in.ZoneID.Value
	}
	if in.Name != nil {
		cr.Name = strings.TrimSpace(*in.Name)
	}
	if in.Variety != nil {
		cr.Variety = *in.Variety
	}
	if in.PlantingDate != nil {
		cr.PlantingDate = in.PlantingDate
	}
	if in.ExpectedHarvestDate != nil {
		cr.ExpectedHarvestDate = in.ExpectedHarvestDate
	}
	if in.GrowthStage != nil {
		if !models.IsValidGrowthStage(*in.GrowthStage) {
			return "unknown growth stage"
		}
		cr.GrowthStage = *in.GrowthStage
	}
	if in.Status != nil {
		if !models.IsValidCropStatus(*in.Status) {
			return "unknown crop status"
		}
		cr.Status = *in.Status
	}
	if in.MoistureMin != nil {
		cr.MoistureMin = in.MoistureMin
	}
	if in.MoistureMax != nil {
		cr.MoistureMax = in.MoistureMax
	}
	if in.Notes != nil {
		cr.Notes = *in.Notes
	}
	switch {
	case cr.Name == "":
		return "name is required"
	case cr.MoistureMin != nil && cr.MoistureMax != nil && *cr.MoistureMin > *cr.MoistureMax:
		return "moisture_min must not exceed moisture_max"
	case cr.PlantingDate != nil && cr.ExpectedHarvestDate != nil && cr.ExpectedHarvestDate.Before(*cr.PlantingDate):
		return "expected_harvest_date must be after planting_date"
	}
	return ""
}

func CreateCrop(c *gin.Context) {
	var in models.CropInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	owner, ok := ownerOf(c)
	if !ok || !checkLimit(c, utils.ResourceCrops) {
		return
	}

	crop := models.Crop{UserID: owner, GrowthStage: "seedling", Status: models.CropActive}
	if msg := applyCropInput(&crop, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !zoneOwnedBy(c, crop.ZoneID, owner) {
		return
	}
	if err := config.DB.Create(&crop).Error; err != nil {
		dbError(c, err, "crop")
		return
	}
	c.JSON(http.StatusCreated, crop)
}

func UpdateCrop(c *gin.Context) {
	var crop models.Crop
	if !findOwned(c, &crop, "crop") {
		return
	}
	var in models.CropInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if msg := applyCropInput(&crop, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !zoneOwnedBy(c, crop.ZoneID, crop.UserID) {
		return
	}
	if err := config.DB.Omit("Zone").Save(&crop).Error; err != nil {
		dbError(c, err, "crop")
		return
	}
	c.JSON(http.StatusOK, crop)
}

func DeleteCrop(c *gin.Context) {
	var crop models.Crop
	if !findOwned(c, &crop, "crop") {
		return
	}
	if err := config.DB.Delete(&crop).Error; err != nil {
		dbError(c, err, "crop")
		return
	}
	c.Status(http.StatusNoContent)
}

func UploadCropImage(c *gin.Context) {
	var crop models.Crop
	if !findOwned(c, &crop, "crop") {
		return
	}
	url, ok := uploadImage(c, "crops")
	if !ok {
		return
	}
	if err := config.DB.Model(&crop).Update("image_url", url).Error; err != nil {
		dbError(c, err, "crop")
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url})
}
