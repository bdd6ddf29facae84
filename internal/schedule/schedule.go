package schedule

import (
	"sort"

	"github.com/google/uuid"

	"github.com/conventionhub/backend/internal/models"
)

// assemble attaches items to their days, ordered by day_offset then start
// time then title. Items of unknown days are dropped.
func assemble(days []models.ScheduleDay, items []models.ConventionScheduleItem) []models.ScheduleDay {
	out := make([]models.ScheduleDay, len(days))
	copy(out, days)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayOffset < out[j].DayOffset })

	index := make(map[uuid.UUID]int, len(out))
	for i := range out {
		out[i].Items = []models.ConventionScheduleItem{}
		index[out[i].ID] = i
	}
	for _, it := range items {
		if i, ok := index[it.ScheduleDayID]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	for i := range out {
		its := out[i].Items
		sort.SliceStable(its, func(a, b int) bool {
			if its[a].StartTimeMinutes != its[b].StartTimeMinutes {
				return its[a].StartTimeMinutes < its[b].StartTimeMinutes
			}
			return its[a].Title < its[b].Title
		})
	}
	return out
}
