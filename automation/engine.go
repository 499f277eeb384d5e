package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/notifications"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/realtime"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/weather"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RainProbabilityThreshold is the precipitation probability (percent) at
// which rain-aware schedules are skipped.
const RainProbabilityThreshold = 60

// StaleAfter is how long a device may stay silent before it is marked offline.
const StaleAfter = 30 * time.Minute

var ErrNoPublisher = errors.New("device messaging is not configured")

// Publisher sends a command to a device.
type Publisher interface {
	PublishCommand(ctx context.Context, serial string, cmd models.DeviceCommand) error
}

// Forecaster is satisfied by *weather.Client.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
}

type Engine struct {
	DB        *gorm.DB
	Hub       *realtime.Hub
	Publisher Publisher
	Weather   Forecaster
	Location  *time.Location
}

func (e *Engine) loc() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

// DispatchRequest describes one valve command and its provenance.
type DispatchRequest struct {
	UserID     uuid.UUID
	Device     *models.Device
	Command    models.DeviceCommand
	Trigger    string
	ScheduleID *uuid.UUID
	RuleID     *uuid.UUID
	Reason     string
}

// Dispatch publishes the command and records an irrigation log whatever the
// outcome. The returned error is the publish error, if any.
func (e *Engine) Dispatch(ctx context.Context, req DispatchRequest) (*models.IrrigationLog, error) {
	entry := &models.IrrigationLog{
		UserID:          req.UserID,
		ZoneID:          req.Device.ZoneID,
		DeviceID:        &req.Device.ID,
		ScheduleID:      req.ScheduleID,
		RuleID:          req.RuleID,
		Trigger:         req.Trigger,
		Action:          req.Command.Action,
		Status:          models.IrrigationDispatched,
		DurationMinutes: req.Command.DurationMinutes,
		Reason:          req.Reason,
	}

	var pubErr error
	if e.Publisher == nil {
		pubErr = ErrNoPublisher
	} else {
		pubErr = e.Publisher.PublishCommand(ctx, req.Device.SerialNumber, req.Command)
	}
	if pubErr != nil {
		entry.Status = models.IrrigationFailed
		entry.Reason = pubErr.Error()
	}

	if err := e.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record irrigation log: %w", err)
	}
	if e.Hub != nil {
		e.Hub.SendToUser(req.UserID, realtime.EventIrrigation, entry)
	}
	return entry, pubErr
}

// skip records a command that was deliberately not sent.
func (e *Engine) skip(userID uuid.UUID, zoneID, deviceID, scheduleID *uuid.UUID, action, reason string) {
	entry := &models.IrrigationLog{
		UserID:     userID,
		ZoneID:     zoneID,
		DeviceID:   deviceID,
		ScheduleID: scheduleID,
		Trigger:    models.TriggerSchedule,
		Action:     action,
		Status:     models.IrrigationSkipped,
		Reason:     reason,
	}
	if err := e.DB.Create(entry).Error; err != nil {
		slog.Error("record skipped irrigation", "schedule_id", scheduleID, "err", err)
		return
	}
	if e.Hub != nil {
		e.Hub.SendToUser(userID, realtime.EventIrrigation, entry)
	}
}

// RaiseAlert creates the alert unless the same device already has an active
// alert of that type. It reports whether a new alert was stored.
func RaiseAlert(db *gorm.DB, hub *realtime.Hub, alert *models.Alert) (bool, error) {
	if alert.DeviceID != nil && alert.Type != "" {
		var n int64
		err := db.Model(&models.Alert{}).
			Where("device_id = ? AND type = ? AND status = ?", *alert.DeviceID, alert.Type, models.AlertActive).
			Count(&n).Error
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}
	if alert.Severity == "" {
		alert.Severity = models.SeverityMedium
	}
	alert.Status = models.AlertActive
	if err := db.Create(alert).Error; err != nil {
		return false, err
	}
	if hub != nil {
		hub.SendToUser(alert.UserID, realtime.EventAlert, alert)
	}

	err := notifications.Send(db, hub, &models.Notification{
		UserID:  alert.UserID,
		Title:   alert.Title,
		Message: alert.Message,
		Type:    models.NotificationAlert,
		Link:    "/alerts",
	})
	return true, err
}

// rulesFor returns the active rules that apply to a reading from device:
// rules bound to the device, rules bound to its zone, and rules bound to
// neither.
func (e *Engine) rulesFor(device *models.Device) ([]models.AutomationRule, error) {
	q := e.DB.Where("user_id = ? AND is_active = ?", device.UserID, true)
	if device.ZoneID != nil {
		q = q.Where("device_id = ? OR (device_id IS NULL AND (zone_id = ? OR zone_id IS NULL))", device.ID, *device.ZoneID)
	} else {
		q = q.Where("device_id = ? OR (device_id IS NULL AND zone_id IS NULL)", device.ID)
	}
	var rules []models.AutomationRule
	err := q.Order("created_at").Find(&rules).Error
	return rules, err
}

// EvaluateReading runs every applicable rule against the reading and
// returns the ids of the rules that fired.
func (e *Engine) EvaluateReading(ctx context.Context, device *models.Device, reading *models.SensorReading) ([]uuid.UUID, error) {
	rules, err := e.rulesFor(device)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	now := time.Now()
	var fired []uuid.UUID
	for i := range rules {
		rule := &rules[i]
		var cond models.RuleCondition
		if err := json.Unmarshal(rule.Condition, &cond); err != nil {
			slog.Warn("skip rule with bad condition", "rule_id", rule.ID, "err", err)
			continue
		}
		if !Matches(cond, reading) || CoolingDown(rule, now) {
			continue
		}

		var action models.RuleAction
		if err := json.Unmarshal(rule.Action, &action); err != nil {
			slog.Warn("skip rule with bad action", "rule_id", rule.ID, "err", err)
			continue
		}
		if err := e.execute(ctx, rule, action, device, cond, reading); err != nil {
			slog.Error("rule action failed", "rule_id", rule.ID, "action", action.Type, "err", err)
		}

		if err := e.DB.Model(rule).Update("last_triggered_at", now).Error; err != nil {
			return fired, fmt.Errorf("update rule %s: %w", rule.ID, err)
		}
		fired = append(fired, rule.ID)
		slog.Info("rule fired", "rule_id", rule.ID, "device_id", device.ID, "action", action.Type)
	}
	return fired, nil
}

func (e *Engine) execute(ctx context.Context, rule *models.AutomationRule, action models.RuleAction,
	source *models.Device, cond models.RuleCondition, reading *models.SensorReading) error {
	v, _ := reading.Metric(cond.Metric)
	reason := fmt.Sprintf("%s: %s %s %g (got %g)", rule.Name, cond.Metric, cond.Operator, cond.Value, v)

	switch action.Type {
	case models.ActionStartIrrigation, models.ActionStopIrrigation:
		if action.DeviceID == nil {
			return errors.New("no target device")
		}
		var target models.Device
		err := e.DB.Where("id = ? AND user_id = ?", *action.DeviceID, rule.UserID).First(&target).Error
		if err != nil {
			return fmt.Errorf("load target device: %w", err)
		}
		cmd := models.DeviceCommand{Action: "open", DurationMinutes: action.DurationMinutes}
		if action.Type == models.ActionStopIrrigation {
			cmd = models.DeviceCommand{Action: "close"}
		}
		_, err = e.Dispatch(ctx, DispatchRequest{
			UserID:  rule.UserID,
			Device:  &target,
			Command: cmd,
			Trigger: models.TriggerRule,
			RuleID:  &rule.ID,
			Reason:  reason,
		})
		return err

	case models.ActionNotify:
		return notifications.Send(e.DB, e.Hub, &models.Notification{
			UserID:  rule.UserID,
			Title:   rule.Name,
			Message: action.Message,
			Type:    models.NotificationInfo,
		})

	case models.ActionAlert:
		_, err := RaiseAlert(e.DB, e.Hub, &models.Alert{
			UserID:   rule.UserID,
			DeviceID: &source.ID,
			ZoneID:   source.ZoneID,
			Type:     "rule:" + rule.ID.String(),
			Severity: action.Severity,
			Title:    rule.Name,
			Message:  action.Message + " (" + reason + ")",
		})
		return err
	}
	return fmt.Errorf("unknown action %q", action.Type)
}

// RunDueSchedules dispatches every schedule due in the minute containing now.
func (e *Engine) RunDueSchedules(ctx context.Context, now time.Time) (int, error) {
	now = now.In(e.loc())

	var schedules []models.IrrigationSchedule
	if err := e.DB.Preload("Zone").Where("is_active = ? AND start_time = ?", true, now.Format("15:04")).
		Find(&schedules).Error; err != nil {
		return 0, fmt.Errorf("load schedules: %w", err)
	}

	ran := 0
	for i := range schedules {
		s := &schedules[i]
		if !IsDue(s, now) {
			continue
		}
		e.runSchedule(ctx, s)
		if err := e.DB.Model(s).Update("last_run_at", now).Error; err != nil {
			slog.Error("update schedule last_run_at", "schedule_id", s.ID, "err", err)
			continue
		}
		ran++
	}
	return ran, nil
}

func (e *Engine) runSchedule(ctx context.Context, s *models.IrrigationSchedule) {
	valve, err := e.scheduleValve(s)
	if err != nil {
		slog.Warn("schedule has no valve", "schedule_id", s.ID, "err", err)
		e.skip(s.UserID, &s.ZoneID, nil, &s.ID, "open", "no valve in zone")
		return
	}

	if s.SkipIfRain && e.rainExpected(ctx, s) {
		slog.Info("skip schedule for rain", "schedule_id", s.ID)
		e.skip(s.UserID, &s.ZoneID, &valve.ID, &s.ID, "open", "rain expected")
		return
	}

	_, err = e.Dispatch(ctx, DispatchRequest{
		UserID:     s.UserID,
		Device:     valve,
		Command:    models.DeviceCommand{Action: "open", DurationMinutes: s.DurationMinutes},
		Trigger:    models.TriggerSchedule,
		ScheduleID: &s.ID,
		Reason:     s.Name,
	})
	if err != nil {
		slog.Error("dispatch schedule", "schedule_id", s.ID, "err", err)
		return
	}

	zoneName := s.ZoneID.String()
	if s.Zone != nil {
		zoneName = s.Zone.Name
	}
	if err := notifications.Send(e.DB, e.Hub, &models.Notification{
		UserID:  s.UserID,
		Title:   "Irrigation started",
		Message: fmt.Sprintf("%s: watering %s for %d minutes", s.Name, zoneName, s.DurationMinutes),
		Type:    models.NotificationSuccess,
	}); err != nil {
		slog.Error("notify schedule run", "schedule_id", s.ID, "err", err)
	}
}

// scheduleValve returns the schedule's own device, or the first actuator in
// its zone.
func (e *Engine) scheduleValve(s *models.IrrigationSchedule) (*models.Device, error) {
	var d models.Device
	q := e.DB.Where("user_id = ?", s.UserID)
	if s.DeviceID != nil {
		q = q.Where("id = ?", *s.DeviceID)
	} else {
		q = q.Where("zone_id = ? AND type IN ?", s.ZoneID, []string{models.DeviceValve, models.DevicePump}).Order("created_at")
	}
	if err := q.First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// rainExpected errs on the side of watering when no forecast is available.
func (e *Engine) rainExpected(ctx context.Context, s *models.IrrigationSchedule) bool {
	if e.Weather == nil || s.Zone == nil || s.Zone.Latitude == nil || s.Zone.Longitude == nil {
		return false
	}
	f, err := e.Weather.Forecast(ctx, *s.Zone.Latitude, *s.Zone.Longitude)
	if err != nil {
		slog.Warn("forecast for schedule", "schedule_id", s.ID, "err", err)
		return false
	}
	return f.RainExpectedToday(RainProbabilityThreshold)
}

// MarkStaleDevices flips online devices that have not reported since
// now-StaleAfter to offline.
func (e *Engine) MarkStaleDevices(now time.Time) (int64, error) {
	cutoff := now.Add(-StaleAfter)
	var stale []models.Device
	if err := e.DB.Where("status = ? AND (last_seen_at IS NULL OR last_seen_at < ?)", models.DeviceOnline, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(stale))
	for i := range stale {
		ids[i] = stale[i].ID
	}
	res := e.DB.Model(&models.Device{}).Where("id IN ?", ids).Update("status", models.DeviceOffline)
	if res.Error != nil {
		return 0, res.Error
	}
	if e.Hub != nil {
		for i := range stale {
			e.Hub.SendToUser(stale[i].UserID, realtime.EventDeviceStatus, map[string]interface{}{
				"device_id": stale[i].ID, "status": models.DeviceOffline,
			})
		}
	}
	return res.RowsAffected, nil
}

// Tick runs one scheduler pass.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	if n, err := e.RunDueSchedules(ctx, now); err != nil {
		slog.Error("run schedules", "err", err)
	} else if n > 0 {
		slog.Info("schedules dispatched", "count", n)
	}
	if n, err := e.MarkStaleDevices(now); err != nil {
		slog.Error("mark stale devices", "err", err)
	} else if n > 0 {
		slog.Info("devices marked offline", "count", n)
	}
}

// Run ticks every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("scheduler started", "interval", interval, "timezone", e.loc().String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case t := <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("scheduler panic", "recover", r)
					}
				}()
				e.Tick(ctx, t)
			}()
		}
	}
}
