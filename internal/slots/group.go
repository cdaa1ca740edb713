package slots

import (
	"sort"
	"time"

	"stellaris/internal/model"
)

// GroupSlotsByDay buckets slots by the calendar date of their start in loc.
// Input order is kept within a day; days are sorted ascending.
func GroupSlotsByDay(slots []model.Slot, loc *time.Location) model.GroupedSlots {
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[string]int)
	days := make([]model.GroupedDay, 0)
	for _, s := range slots {
		date := s.Start.In(loc).Format(model.DateLayout)
		i, ok := index[date]
		if !ok {
			i = len(days)
			index[date] = i
			days = append(days, model.GroupedDay{Date: date})
		}
		days[i].Slots = append(days[i].Slots, s)
	}

	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})

	return model.GroupedSlots{Days: days}
}
