package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/automation"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/utils"
	"github.com/gin-gonic/gin"
)

func ListRules(c *gin.Context) {
	q := scoped(c, config.DB.Model(&models.AutomationRule{}))
	if z := c.Query("zone_id"); z != "" {
		q = q.Where("zone_id = ?", z)
	}
	var rules []models.AutomationRule
	paginate(c, q.Order("created_at DESC"), &rules, "rule")
}

func GetRule(c *gin.Context) {
	var r models.AutomationRule
	if !findOwned(c, &r, "rule") {
		return
	}
	c.JSON(http.StatusOK, r)
}

func applyRuleInput(r *models.AutomationRule, in *models.AutomationRuleInput) string {
	if in.ZoneID != nil {
		r.ZoneID = in.ZoneID
	}
	if in.DeviceID != nil {
		r.DeviceID = in.DeviceID
	}
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.Condition != nil {
		if err := automation.ValidateCondition(*in.Condition); err != nil {
			return err.Error()
		}
		r.Condition, _ = json.Marshal(in.Condition)
	}
	if in.Action != nil {
		if err := automation.ValidateAction(*in.Action); err != nil {
			return err.Error()
		}
		r.Action, _ = json.Marshal(in.Action)
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	if in.CooldownMinutes != nil {
		if *in.CooldownMinutes < 0 {
			return "cooldown_minutes must not be negative"
		}
		r.CooldownMinutes = *in.CooldownMinutes
	}
	switch {
	case r.Name == "":
		return "name is required"
	case len(r.Condition) == 0:
		return "condition is required"
	case len(r.Action) == 0:
		return "action is required"
	}
	return ""
}

// checkRuleTargets verifies the zone, the source device and the action's
// target device all belong to the rule's owner.
func checkRuleTargets(c *gin.Context, r *models.AutomationRule) bool {
	if !zoneOwnedBy(c, r.ZoneID, r.UserID) {
		return false
	}
	if _, ok := deviceOwnedBy(c, r.DeviceID, r.UserID); !ok {
		return false
	}
	var action models.RuleAction
	if err := json.Unmarshal(r.Action, &action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
		return false
	}
	target, ok := deviceOwnedBy(c, action.DeviceID, r.UserID)
	if !ok {
		return false
	}
	if target != nil && !models.IsActuator(target.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action device must be a valve or pump"})
		return false
	}
	return true
}

func CreateRule(c *gin.Context) {
	var in models.AutomationRuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	owner, ok := ownerOf(c)
	if !ok || !checkLimit(c, utils.ResourceRules) {
		return
	}

	r := models.AutomationRule{UserID: owner, IsActive: true, CooldownMinutes: models.DefaultCooldownMinutes}
	if msg := applyRuleInput(&r, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !checkRuleTargets(c, &r) {
		return
	}
	if err := config.DB.Create(&r).Error; err != nil {
		dbError(c, err, "rule")
		return
	}
	c.JSON(http.StatusCreated, r)
}

func UpdateRule(c *gin.Context) {
	var r models.AutomationRule
	if !findOwned(c, &r, "rule") {
		return
	}
	var in models.AutomationRuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if msg := applyRuleInput(&r, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !checkRuleTargets(c, &r) {
		return
	}
	if err := config.DB.Save(&r).Error; err != nil {
		dbError(c, err, "rule")
		return
	}
	c.JSON(http.StatusOK, r)
}

func DeleteRule(c *gin.Context) {
	var r models.AutomationRule
	if !findOwned(c, &r, "rule") {
		return
	}
	if err := config.DB.Delete(&r).Error; err != nil {
		dbError(c, err, "rule")
		return
	}
	c.Status(http.StatusNoContent)
}
