// Package automation evaluates automation rules against incoming readings
// and dispatches irrigation schedules.
package automation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
)

var operators = map[string]func(a, b float64) bool{
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
	"==": func(a, b float64) bool { return a == b },
	"!=": func(a, b float64) bool { return a != b },
}

var metrics = map[string]bool{
	"soil_moisture": true, "temperature": true, "humidity": true, "light": true, "battery_level": true,
}

func ValidateCondition(c models.RuleCondition) error {
	if !metrics[c.Metric] {
		return fmt.Errorf("unknown metric %q", c.Metric)
	}
	if _, ok := operators[c.Operator]; !ok {
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	return nil
}

func ValidateAction(a models.RuleAction) error {
	switch a.Type {
	case models.ActionStartIrrigation, models.ActionStopIrrigation:
		if a.DeviceID == nil {
			return fmt.Errorf("%s requires device_id", a.Type)
		}
		if a.Type == models.ActionStartIrrigation && a.DurationMinutes <= 0 {
			return fmt.Errorf("start_irrigation requires a positive duration_minutes")
		}
	case models.ActionNotify:
		if a.Message == "" {
			return fmt.Errorf("notify requires message")
		}
	case models.ActionAlert:
		if a.Message == "" {
			return fmt.Errorf("alert requires message")
		}
		if a.Severity != "" && !models.IsValidSeverity(a.Severity) {
			return fmt.Errorf("unknown severity %q", a.Severity)
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// Matches reports whether the reading satisfies the condition. A reading
// without the metric never matches.
func Matches(c models.RuleCondition, r *models.SensorReading) bool {
	v, ok := r.Metric(c.Metric)
	if !ok {
		return false
	}
	op, ok := operators[c.Operator]
	if !ok {
		return false
	}
	return op(v, c.Value)
}

// CoolingDown reports whether the rule fired less than its cooldown ago.
func CoolingDown(rule *models.AutomationRule, now time.Time) bool {
	if rule.LastTriggeredAt == nil || rule.CooldownMinutes <= 0 {
		return false
	}
	return now.Before(rule.LastTriggeredAt.Add(time.Duration(rule.CooldownMinutes) * time.Minute))
}

var startTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func ValidateStartTime(s string) error {
	if !startTimeRe.MatchString(s) {
		return fmt.Errorf("start_time must be HH:MM, got %q", s)
	}
	return nil
}

func ValidateDays(days []int) error {
	if len(days) == 0 {
		return fmt.Errorf("days_of_week must not be empty")
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("day %d out of range 0-6", d)
		}
	}
	return nil
}

// IsDue reports whether the schedule should run in the minute containing now.
// now must already be in the schedule's timezone.
func IsDue(s *models.IrrigationSchedule, now time.Time) bool {
	if !s.IsActive || now.Format("15:04") != s.StartTime {
		return false
	}
	dayMatch := false
	for _, d := range s.Days() {
		if time.Weekday(d) == now.Weekday() {
			dayMatch = true
			break
		}
	}
	if !dayMatch {
		return false
	}
	if s.LastRunAt != nil {
		last := s.LastRunAt.In(now.Location()).Truncate(time.Minute)
		if last.Equal(now.Truncate(time.Minute)) {
			return false
		}
	}
	return true
}
