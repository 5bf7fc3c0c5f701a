package calendar

import (
	"fmt"
	"strconv"

	"todo-calendar/internal/models"
)

// FromFeed переводит ленту /fetch_tasks в события календаря.
// Старт без времени даёт событие на весь день.
func FromFeed(feed []models.Event) ([]Event, error) {
	events := make([]Event, 0, len(feed))
	for _, item := range feed {
		start, err := models.ParseTimestamp(item.Start)
		if err != nil {
			return nil, fmt.Errorf("событие %d: %w", item.ID, err)
		}
		ev := Event{
			ID:     strconv.Itoa(item.ID),
			Title:  item.Title,
			Start:  start,
			AllDay: item.AllDay || len(item.Start) == len(models.DateLayout),
		}
		if item.End != nil {
			end, err := models.ParseTimestamp(*item.End)
			if err != nil {
				return nil, fmt.Errorf("событие %d: %w", item.ID, err)
			}
			ev.End = &end
		}
		events = append(events, ev)
	}
	return events, nil
}
