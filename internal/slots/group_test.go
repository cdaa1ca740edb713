package slots

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellaris/internal/model"
)

func TestGroupSlotsByDay_Empty(t *testing.T) {
	grouped := GroupSlotsByDay(nil, time.UTC)
	require.NotNil(t, grouped.Days)
	assert.Empty(t, grouped.Days)

	raw, err := json.Marshal(grouped)
	require.NoError(t, err)
	assert.JSONEq(t, `{"days": []}`, string(raw))
}

func TestGroupSlotsByDay(t *testing.T) {
	paris := mustLoad(t, "Europe/Paris")
	at := func(day, hour int) model.Slot {
		start := time.Date(2024, 6, day, hour, 0, 0, 0, paris)
		return model.Slot{Start: start, End: start.Add(time.Hour), Capacity: 1, Remaining: 1}
	}

	slots := []model.Slot{at(10, 9), at(10, 10), at(11, 0), at(11, 9), at(13, 23)}
	grouped := GroupSlotsByDay(slots, paris)

	require.Len(t, grouped.Days, 3)
	assert.Equal(t, "2024-06-10", grouped.Days[0].Date)
	assert.Len(t, grouped.Days[0].Slots, 2)
	// Midnight in Paris belongs to the 11th even though it is the 10th in UTC.
	assert.Equal(t, "2024-06-11", grouped.Days[1].Date)
	assert.Len(t, grouped.Days[1].Slots, 2)
	assert.Equal(t, "2024-06-13", grouped.Days[2].Date)

	for _, day := range grouped.Days {
		for i, s := range day.Slots {
			assert.Equal(t, day.Date, s.Start.In(paris).Format(model.DateLayout))
			if i > 0 {
				assert.True(t, day.Slots[i-1].Start.Before(s.Start))
			}
		}
	}
}
