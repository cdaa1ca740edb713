package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScheduleJSON = `{
	"timezone": "Europe/Paris",
	"slotDurationMinutes": 30,
	"maxBookingsPerSlot": 1,
	"days": {
		"mon": [{"start": "09:00", "end": "18:00"}],
		"tue": [], "wed": [], "thu": [], "fri": [], "sat": [], "sun": []
	},
	"exceptions": {"2024-12-25": []}
}`

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"valid", validScheduleJSON, ""},
		{"null payload", `null`, "invalid payload"},
		{"array payload", `[]`, "invalid payload"},
		{"broken json", `{`, "invalid payload"},
		{"missing timezone", `{"slotDurationMinutes": 30}`, "timezone is required"},
		{"unknown timezone", `{"timezone": "Mars/Olympus"}`, `timezone "Mars/Olympus" is unknown`},
		{"host local timezone", `{"timezone": "Local"}`, `timezone "Local" is unknown`},
		{"zero duration", `{"timezone": "UTC", "slotDurationMinutes": 0}`, "slotDurationMinutes is invalid"},
		{"fractional duration", `{"timezone": "UTC", "slotDurationMinutes": 7.5}`, "slotDurationMinutes is invalid"},
		{"string capacity", `{"timezone": "UTC", "slotDurationMinutes": 30, "maxBookingsPerSlot": "2"}`, "maxBookingsPerSlot is invalid"},
		{"missing days", `{"timezone": "UTC", "slotDurationMinutes": 30, "maxBookingsPerSlot": 1}`, "days is required"},
		{
			"missing weekday",
			`{"timezone": "UTC", "slotDurationMinutes": 30, "maxBookingsPerSlot": 1, "days": {"mon": []}}`,
			"days.tue must be a list of intervals",
		},
		{
			"interval without end",
			`{"timezone": "UTC", "slotDurationMinutes": 30, "maxBookingsPerSlot": 1,
			  "days": {"mon": [{"start": "09:00"}], "tue": [], "wed": [], "thu": [], "fri": [], "sat": [], "sun": []}}`,
			"invalid interval for mon",
		},
		{
			"exceptions not an object",
			`{"timezone": "UTC", "slotDurationMinutes": 30, "maxBookingsPerSlot": 1,
			  "days": {"mon": [], "tue": [], "wed": [], "thu": [], "fri": [], "sat": [], "sun": []},
			  "exceptions": "none"}`,
			"exceptions is invalid",
		},
		{
			"null exceptions",
			`{"timezone": "UTC", "slotDurationMinutes": 30, "maxBookingsPerSlot": 1,
			  "days": {"mon": [], "tue": [], "wed": [], "thu": [], "fri": [], "sat": [], "sun": []},
			  "exceptions": null}`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON([]byte(tt.payload))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Message)
		})
	}
}

func TestValidate_NonMapPayload(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate("schedule"))
}
