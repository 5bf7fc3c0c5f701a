package models

import (
	"fmt"
	"strings"
	"time"
)

// Форматы дат, которые понимает календарь
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

type TaskType string

const (
	TaskSingle TaskType = "single"
	TaskMulti  TaskType = "multi"
)

// ParseTaskType: пустая строка означает single.
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(strings.TrimSpace(s)) {
	case "", TaskSingle:
		return TaskSingle, nil
	case TaskMulti:
		return TaskMulti, nil
	default:
		return "", fmt.Errorf("%w: неизвестный тип задачи %q", ErrValidation, s)
	}
}

type Task struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"desc"`
	Type        TaskType   `json:"task_type"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	Completed   bool       `json:"completed"`
	Expired     bool       `json:"expired"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Event - элемент ленты /fetch_tasks в формате календаря.
type Event struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Start    string  `json:"start"`
	End      *string `json:"end"`
	Editable bool    `json:"editable"`
	AllDay   bool    `json:"allDay,omitempty"`
}

// ToEvent: multi-задачи отдаются датами, single - полными метками времени.
func (t Task) ToEvent() Event {
	ev := Event{ID: t.ID, Title: t.Title, Editable: true}
	if t.Type == TaskMulti {
		ev.Start = t.Start.Format(DateLayout)
		if t.End != nil {
			end := t.End.Format(DateLayout)
			ev.End = &end
		}
		return ev
	}

	ev.Start = t.Start.Format(DateTimeLayout)
	end := ev.Start
	if t.End != nil {
		end = t.End.Format(DateTimeLayout)
	}
	ev.End = &end
	return ev
}

// CreateTaskRequest - поля формы /add_task
type CreateTaskRequest struct {
	Title       string
	Description string
	Type        string
}

// CreatedTask - ответ /add_task
type CreatedTask struct {
	ID          int      `json:"sno"`
	Title       string   `json:"title"`
	Description string   `json:"desc"`
	Type        TaskType `json:"task_type"`
}

// Stats - счётчики для страницы профиля
type Stats struct {
	Username   string `json:"username"`
	All        int    `json:"all_tasks"`
	Completed  int    `json:"completed_tasks"`
	Incomplete int    `json:"incomplete_tasks"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	DateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp принимает дату или дату со временем, с зоной или без.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: некорректная дата %q", ErrValidation, s)
}
