package slots

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"stellaris/internal/model"
)

// ValidationError describes the first structural problem found in a schedule payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ValidateJSON decodes raw and validates the result as a schedule payload.
func ValidateJSON(raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return invalid("invalid payload")
	}
	return Validate(payload)
}

// Validate checks a decoded schedule payload. Checks run in a fixed order and stop at the first failure.
func Validate(payload any) error {
	obj, ok := payload.(map[string]any)
	if !ok || obj == nil {
		return invalid("invalid payload")
	}

	tz, ok := obj["timezone"].(string)
	if !ok || tz == "" {
		return invalid("timezone is required")
	}
	if _, err := time.LoadLocation(tz); err != nil || tz == "Local" {
		return invalid("timezone %q is unknown", tz)
	}

	if !positiveInt(obj["slotDurationMinutes"]) {
		return invalid("slotDurationMinutes is invalid")
	}
	if !positiveInt(obj["maxBookingsPerSlot"]) {
		return invalid("maxBookingsPerSlot is invalid")
	}

	days, ok := obj["days"].(map[string]any)
	if !ok {
		return invalid("days is required")
	}
	for _, key := range model.WeekdayKeys {
		ranges, ok := days[key].([]any)
		if !ok {
			return invalid("days.%s must be a list of intervals", key)
		}
		for _, r := range ranges {
			itv, ok := r.(map[string]any)
			if !ok || !nonEmptyString(itv["start"]) || !nonEmptyString(itv["end"]) {
				return invalid("invalid interval for %s", key)
			}
		}
	}

	if ex, present := obj["exceptions"]; present && ex != nil {
		if _, ok := ex.(map[string]any); !ok {
			return invalid("exceptions is invalid")
		}
	}

	return nil
}

func positiveInt(v any) bool {
	f, ok := v.(float64)
	if !ok {
		return false
	}
	return f > 0 && f == math.Trunc(f) && f <= math.MaxInt32
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}
