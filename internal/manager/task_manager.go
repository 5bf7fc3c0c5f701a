package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"todo-calendar/internal/logger"
	"todo-calendar/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	maxTitleLength = 100
	maxDescLength  = 1000
)

var (
	addTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_added_total",
			Help: "Total number of AddTask operations",
		},
		[]string{"status"},
	)

	updateTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_updated_total",
			Help: "Total number of task update operations",
		},
		[]string{"op", "status"},
	)

	expiredTaskCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_expired_total",
			Help: "Total number of tasks marked as expired",
		},
	)

	taskDescLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_task_desc_length_bytes",
			Help:    "Length distribution of task descriptions",
			Buckets: []float64{50, 100, 500, 1000},
		},
	)

	addTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_add_task_duration_seconds",
			Help:    "Duration of AddTask operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	updateTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todoapp_update_task_duration_seconds",
			Help:    "Duration of task update operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

type TaskManager struct {
	storage Storage
	now     func() time.Time
}

func NewTaskManager(storage Storage) *TaskManager {
	return &TaskManager{storage: storage, now: time.Now}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrValidation, fmt.Sprintf(format, args...))
}

// AddTask создаёт задачу пользователя; начало и конец по умолчанию - текущий момент.
func (tm *TaskManager) AddTask(ctx context.Context, userID int, req models.CreateTaskRequest) (*models.Task, error) {
	startTime := time.Now()
	defer func() {
		addTaskDuration.Observe(time.Since(startTime).Seconds())
	}()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		addTaskCount.WithLabelValues("error").Inc()
		return nil, validationError("название задачи обязательно")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		addTaskCount.WithLabelValues("error").Inc()
		return nil, validationError("название не может превышать %d символов", maxTitleLength)
	}
	if utf8.RuneCountInString(req.Description) > maxDescLength {
		addTaskCount.WithLabelValues("error").Inc()
		return nil, validationError("описание не может превышать %d символов", maxDescLength)
	}
	taskType, err := models.ParseTaskType(req.Type)
	if err != nil {
		addTaskCount.WithLabelValues("error").Inc()
		return nil, err
	}

	now := tm.now()
	end := now
	task := &models.Task{
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		Type:        taskType,
		Start:       now,
		End:         &end,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := tm.storage.CreateTask(ctx, task); err != nil {
		addTaskCount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("сохранение задачи: %w", err)
	}

	addTaskCount.WithLabelValues("success").Inc()
	taskDescLength.Observe(float64(len(req.Description)))
	logger.Debug(ctx, "Задача создана", "taskID", task.ID, "userID", userID)

	return task, nil
}

// ownedTask возвращает задачу, только если она принадлежит пользователю.
func (tm *TaskManager) ownedTask(ctx context.Context, userID, taskID int) (*models.Task, error) {
	task, err := tm.storage.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("задача %d: %w", taskID, models.ErrForbidden)
	}
	return task, nil
}

func observeUpdate(op string, startTime time.Time, err error) {
	updateTaskDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	if err != nil {
		updateTaskCount.WithLabelValues(op, "error").Inc()
		return
	}
	updateTaskCount.WithLabelValues(op, "success").Inc()
}

// Complete отмечает задачу выполненной. Повторный вызов не ошибка.
func (tm *TaskManager) Complete(ctx context.Context, userID, taskID int) (task *models.Task, err error) {
	defer func(startTime time.Time) { observeUpdate("complete", startTime, err) }(time.Now())

	task, err = tm.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err = tm.storage.SetCompleted(ctx, taskID, true); err != nil {
		return nil, err
	}
	task.Completed = true
	return task, nil
}

// UpdatePosition переносит задачу в календаре. Порядок start/end не проверяется.
func (tm *TaskManager) UpdatePosition(ctx context.Context, userID, taskID int, start, end time.Time) (err error) {
	defer func(startTime time.Time) { observeUpdate("position", startTime, err) }(time.Now())

	if _, err = tm.ownedTask(ctx, userID, taskID); err != nil {
		return err
	}
	return tm.storage.UpdateTaskPosition(ctx, taskID, start, &end)
}

func (tm *TaskManager) ListTasks(ctx context.Context, userID int) ([]models.Task, error) {
	return tm.storage.ListTasks(ctx, userID)
}

// Events отдаёт задачи пользователя в формате ленты календаря.
func (tm *TaskManager) Events(ctx context.Context, userID int) ([]models.Event, error) {
	tasks, err := tm.storage.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(tasks))
	for _, task := range tasks {
		events = append(events, task.ToEvent())
	}
	return events, nil
}

func (tm *TaskManager) Stats(ctx context.Context, user *models.User) (*models.Stats, error) {
	all, err := tm.storage.CountTasks(ctx, user.ID, nil)
	if err != nil {
		return nil, err
	}
	done := true
	completed, err := tm.storage.CountTasks(ctx, user.ID, &done)
	if err != nil {
		return nil, err
	}
	return &models.Stats{
		Username:   user.Username,
		All:        all,
		Completed:  completed,
		Incomplete: all - completed,
	}, nil
}

// ExpireOverdue помечает просроченные задачи; вызывается планировщиком.
func (tm *TaskManager) ExpireOverdue(ctx context.Context) (int, error) {
	n, err := tm.storage.MarkExpired(ctx, tm.now())
	if err != nil {
		return 0, fmt.Errorf("пометка просроченных задач: %w", err)
	}
	if n > 0 {
		expiredTaskCount.Add(float64(n))
		logger.Info(ctx, "Задачи помечены просроченными", "count", n)
	}
	return n, nil
}

// IsClientError - ошибка, вызванная запросом, а не сервером.
func IsClientError(err error) bool {
	return errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrForbidden) ||
		errors.Is(err, models.ErrUnauthorized) ||
		errors.Is(err, models.ErrConflict)
}
