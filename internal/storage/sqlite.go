package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todo-calendar/internal/logger"
	"todo-calendar/internal/models"

	_ "modernc.org/sqlite"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}
	// SQLite не любит параллельных писателей
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info(context.Background(), "SQLite база данных инициализирована", "path", dbPath)
	return &SQLiteStorage{db: db}, nil
}

func createTables(db *sql.DB) error {
	tables := []struct {
		name  string
		query string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			telegram_id INTEGER UNIQUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`},
		{"tasks", `
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			task_type TEXT NOT NULL DEFAULT 'single',
			start_date DATETIME NOT NULL,
			end_date DATETIME,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			expired BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`},
		{"idx_tasks_user", `CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks (user_id)`},
	}

	for _, t := range tables {
		if _, err := db.Exec(t.query); err != nil {
			return fmt.Errorf("ошибка создания %s: %w", t.name, err)
		}
	}
	return nil
}

// Закрытие соединения
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Все метки времени храним в UTC с точностью до секунды, чтобы строки в SQLite сравнивались корректно.
// Память хранит задачи так же, чтобы лента не зависела от хранилища.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func dbNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

const taskColumns = `id, user_id, title, description, task_type, start_date, end_date, completed, expired, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var taskType string
	var end sql.NullTime

	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &taskType,
		&task.Start, &end, &task.Completed, &task.Expired, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Type = models.TaskType(taskType)
	task.Start = task.Start.UTC()
	if end.Valid {
		e := end.Time.UTC()
		task.End = &e
	}
	return &task, nil
}

// Методы для работы с задачами
func (s *SQLiteStorage) CreateTask(ctx context.Context, task *models.Task) (int, error) {
	query := `
	INSERT INTO tasks (user_id, title, description, task_type, start_date, end_date, completed, expired, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		task.UserID, task.Title, task.Description, string(task.Type),
		dbTime(task.Start), dbNullTime(task.End), task.Completed, task.Expired,
		dbTime(task.CreatedAt), dbTime(task.UpdatedAt),
	)
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return 0, fmt.Errorf("пользователь %d: %w", task.UserID, models.ErrNotFound)
		}
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	task.ID = int(id)
	return task.ID, nil
}

func (s *SQLiteStorage) GetTask(ctx context.Context, id int) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("задача с ID %d: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return task, nil
}

func (s *SQLiteStorage) ListTasks(ctx context.Context, userID int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStorage) UpdateTaskPosition(ctx context.Context, id int, start time.Time, end *time.Time) error {
	query := "UPDATE tasks SET start_date = ?, end_date = ?, updated_at = ? WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, dbTime(start), dbNullTime(end), dbTime(time.Now()), id)
	if err != nil {
		return err
	}
	return expectRow(result, fmt.Sprintf("задача с ID %d", id))
}

func (s *SQLiteStorage) SetCompleted(ctx context.Context, id int, completed bool) error {
	query := "UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, completed, dbTime(time.Now()), id)
	if err != nil {
		return err
	}
	return expectRow(result, fmt.Sprintf("задача с ID %d", id))
}

func (s *SQLiteStorage) DeleteUserTasks(ctx context.Context, userID int) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (s *SQLiteStorage) CountTasks(ctx context.Context, userID int, completed *bool) (int, error) {
	query := "SELECT COUNT(*) FROM tasks WHERE user_id = ?"
	args := []any{userID}
	if completed != nil {
		query += " AND completed = ?"
		args = append(args, *completed)
	}

	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// MarkExpired помечает незавершённые задачи, у которых end_date уже прошла.
func (s *SQLiteStorage) MarkExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
	UPDATE tasks SET expired = TRUE, updated_at = ?
	WHERE completed = FALSE AND expired = FALSE AND end_date IS NOT NULL AND end_date < ?`

	ts := dbTime(now)
	result, err := s.db.ExecContext(ctx, query, ts, ts)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Методы для пользователей
const userColumns = `id, username, password_hash, telegram_id, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var telegramID sql.NullInt64
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &telegramID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.TelegramID = telegramID.Int64
	return &user, nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) (int, error) {
	query := `
	INSERT INTO users (username, password_hash, telegram_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`

	var telegramID any
	if user.TelegramID != 0 {
		telegramID = user.TelegramID
	}

	result, err := s.db.ExecContext(ctx, query,
		user.Username, user.PasswordHash, telegramID, dbTime(user.CreatedAt), dbTime(user.UpdatedAt),
	)
	if err != nil {
		if isConstraint(err, "UNIQUE") {
			return 0, fmt.Errorf("пользователь %q: %w", user.Username, models.ErrConflict)
		}
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	user.ID = int(id)
	return user.ID, nil
}

func (s *SQLiteStorage) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" = ?", arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("пользователь %v: %w", arg, models.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStorage) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *SQLiteStorage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.getUser(ctx, "telegram_id", telegramID)
}

func (s *SQLiteStorage) UpdatePassword(ctx context.Context, id int, hash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, dbTime(time.Now()), id,
	)
	if err != nil {
		return err
	}
	return expectRow(result, fmt.Sprintf("пользователь %d", id))
}

// SetTelegramID привязывает Telegram-аккаунт к существующему пользователю.
func (s *SQLiteStorage) SetTelegramID(ctx context.Context, id int, telegramID int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET telegram_id = ?, updated_at = ? WHERE id = ?",
		telegramID, dbTime(time.Now()), id,
	)
	if err != nil {
		if isConstraint(err, "UNIQUE") {
			return fmt.Errorf("telegram ID %d: %w", telegramID, models.ErrConflict)
		}
		return err
	}
	return expectRow(result, fmt.Sprintf("пользователь %d", id))
}

// DeleteUser удаляет пользователя вместе с задачами в одной транзакции.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE user_id = ?", id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if err := expectRow(result, fmt.Sprintf("пользователь %d", id)); err != nil {
		return err
	}
	return tx.Commit()
}

func expectRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}

func isConstraint(err error, kind string) bool {
	msg := err.Error()
	return strings.Contains(msg, "constraint failed") && strings.Contains(msg, kind)
}
