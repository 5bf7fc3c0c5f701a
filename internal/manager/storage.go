package manager

import (
	"context"
	"time"

	"todo-calendar/internal/models"
)

// Storage - то, что менеджерам нужно от хранилища (SQLite или память)
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task *models.Task) (int, error)
	GetTask(ctx context.Context, id int) (*models.Task, error)
	ListTasks(ctx context.Context, userID int) ([]models.Task, error)
	UpdateTaskPosition(ctx context.Context, id int, start time.Time, end *time.Time) error
	SetCompleted(ctx context.Context, id int, completed bool) error
	DeleteUserTasks(ctx context.Context, userID int) (int, error)
	CountTasks(ctx context.Context, userID int, completed *bool) (int, error)
	MarkExpired(ctx context.Context, now time.Time) (int, error)

	// Users
	CreateUser(ctx context.Context, user *models.User) (int, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int, hash string) error
	DeleteUser(ctx context.Context, id int) error

	Close() error
}
