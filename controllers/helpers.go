package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Pagination struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// paginate counts q, then loads one page of it into dest and writes the
// {data, pagination} envelope.
func paginate(c *gin.Context, q *gorm.DB, dest interface{}, what string) {
	page, size := pageParams(c)
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		dbError(c, err, what)
		return
	}
	if err := q.Offset((page - 1) * size).Limit(size).Find(dest).Error; err != nil {
		dbError(c, err, what)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       dest,
		"pagination": Pagination{Page: page, Size: size, Total: total},
	})
}

// scoped restricts q to the caller's rows. Admins see every tenant and may
// narrow to one with ?user_id=.
func scoped(c *gin.Context, q *gorm.DB) *gorm.DB {
	p := middlewares.CurrentProfile(c)
	if p.IsAdmin() {
		if uid := c.Query("user_id"); uid != "" {
			return q.Where("user_id = ?", uid)
		}
		return q
	}
	return q.Where("user_id = ?", p.ID)
}

// findOwned loads the row with the :id param into dest, applying the
// ownership scope. It writes the error response and returns false on failure.
func findOwned(c *gin.Context, dest interface{}, what string) bool {
	id, ok := paramID(c, "id")
	if !ok {
		return false
	}
	if err := scoped(c, config.DB).First(dest, "id = ?", id).Error; err != nil {
		dbError(c, err, what)
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// dbError maps a gorm error onto the response status.
func dbError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": what + " already exists"})
	default:
		slog.Error("database error", "resource", what, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process " + what})
	}
}

// ownerOf returns the user id new rows are created for: the caller, or for
// admins an explicit ?user_id=.
func ownerOf(c *gin.Context) (uuid.UUID, bool) {
	p := middlewares.CurrentProfile(c)
	if uid := c.Query("user_id"); uid != "" && p.IsAdmin() {
		id, err := uuid.Parse(uid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return uuid.Nil, false
		}
		return id, true
	}
	return p.ID, true
}

// checkLimit enforces the plan quota for one more resource owned by the
// caller. It writes a 403 and returns false when the quota is used up.
func checkLimit(c *gin.Context, resource string) bool {
	p := middlewares.CurrentProfile(c)
	_, limits, err := utils.ResolvePlan(config.DB, p)
	if err != nil {
		dbError(c, err, "plan")
		return false
	}
	current, err := utils.CountUsage(config.DB, p.ID, resource)
	if err != nil {
		dbError(c, err, resource)
		return false
	}
	if !limits.Allows(resource, current) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Plan limit reached for " + resource,
			"limit":   limits.Max(resource),
			"current": current,
		})
		return false
	}
	return true
}

// zoneOwnedBy reports whether the zone exists and belongs to owner.
func zoneOwnedBy(c *gin.Context, zoneID *uuid.UUID, owner uuid.UUID) bool {
	if zoneID == nil {
		return true
	}
	var n int64
	if err := config.DB.Model(&models.Zone{}).Where("id = ? AND user_id = ?", *zoneID, owner).Count(&n).Error; err != nil {
		dbError(c, err, "zone")
		return false
	}
	if n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Zone not found"})
		return false
	}
	return true
}

// deviceOwnedBy loads the device when it belongs to owner.
func deviceOwnedBy(c *gin.Context, deviceID *uuid.UUID, owner uuid.UUID) (*models.Device, bool) {
	if deviceID == nil {
		return nil, true
	}
	var d models.Device
	err := config.DB.Where("id = ? AND user_id = ?", *deviceID, owner).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Device not found"})
		return nil, false
	}
	if err != nil {
		dbError(c, err, "device")
		return nil, false
	}
	return &d, true
}
