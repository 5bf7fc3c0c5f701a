package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"todo-calendar/internal/models"
)

// In-memory хранилище для тестов и запуска без БД
type MemoryStorage struct {
	mu         sync.Mutex
	tasks      map[int]models.Task
	users      map[int]models.User
	nextID     int
	nextUserID int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks:      make(map[int]models.Task),
		users:      make(map[int]models.User),
		nextID:     1,
		nextUserID: 1,
	}
}

func (m *MemoryStorage) CreateTask(_ context.Context, task *models.Task) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[task.UserID]; !ok {
		return 0, fmt.Errorf("пользователь %d: %w", task.UserID, models.ErrNotFound)
	}

	task.ID = m.nextID
	stored := cloneTask(*task)
	stored.Start = dbTime(stored.Start)
	if stored.End != nil {
		e := dbTime(*stored.End)
		stored.End = &e
	}
	m.tasks[task.ID] = stored
	m.nextID++
	return task.ID, nil
}

func (m *MemoryStorage) GetTask(_ context.Context, id int) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("задача с ID %d: %w", id, models.ErrNotFound)
	}
	out := cloneTask(task)
	return &out, nil
}

func (m *MemoryStorage) ListTasks(_ context.Context, userID int) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]models.Task, 0)
	for _, task := range m.tasks {
		if task.UserID == userID {
			tasks = append(tasks, cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (m *MemoryStorage) UpdateTaskPosition(_ context.Context, id int, start time.Time, end *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("задача с ID %d: %w", id, models.ErrNotFound)
	}
	task.Start = dbTime(start)
	task.End = nil
	if end != nil {
		e := dbTime(*end)
		task.End = &e
	}
	task.UpdatedAt = time.Now()
	m.tasks[id] = task
	return nil
}

func (m *MemoryStorage) SetCompleted(_ context.Context, id int, completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("задача с ID %d: %w", id, models.ErrNotFound)
	}
	task.Completed = completed
	task.UpdatedAt = time.Now()
	m.tasks[id] = task
	return nil
}

func (m *MemoryStorage) DeleteUserTasks(_ context.Context, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, task := range m.tasks {
		if task.UserID == userID {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStorage) CountTasks(_ context.Context, userID int, completed *bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, task := range m.tasks {
		if task.UserID != userID {
			continue
		}
		if completed != nil && task.Completed != *completed {
			continue
		}
		n++
	}
	return n, nil
}

func (m *MemoryStorage) MarkExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, task := range m.tasks {
		if task.Completed || task.Expired || task.End == nil || !task.End.Before(now) {
			continue
		}
		task.Expired = true
		task.UpdatedAt = now
		m.tasks[id] = task
		n++
	}
	return n, nil
}

func (m *MemoryStorage) CreateUser(_ context.Context, user *models.User) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return 0, fmt.Errorf("пользователь %q: %w", user.Username, models.ErrConflict)
		}
		if user.TelegramID != 0 && u.TelegramID == user.TelegramID {
			return 0, fmt.Errorf("telegram ID %d: %w", user.TelegramID, models.ErrConflict)
		}
	}

	user.ID = m.nextUserID
	m.users[user.ID] = *user
	m.nextUserID++
	return user.ID, nil
}

func (m *MemoryStorage) GetUserByID(_ context.Context, id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, fmt.Errorf("пользователь %d: %w", id, models.ErrNotFound)
}

func (m *MemoryStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Username == username }, username)
}

func (m *MemoryStorage) GetUserByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return telegramID != 0 && u.TelegramID == telegramID }, telegramID)
}

func (m *MemoryStorage) findUser(match func(models.User) bool, key any) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("пользователь %v: %w", key, models.ErrNotFound)
}

func (m *MemoryStorage) UpdatePassword(_ context.Context, id int, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("пользователь %d: %w", id, models.ErrNotFound)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *MemoryStorage) SetTelegramID(_ context.Context, id int, telegramID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("пользователь %d: %w", id, models.ErrNotFound)
	}
	for _, other := range m.users {
		if other.ID != id && other.TelegramID == telegramID {
			return fmt.Errorf("telegram ID %d: %w", telegramID, models.ErrConflict)
		}
	}
	u.TelegramID = telegramID
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *MemoryStorage) DeleteUser(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("пользователь %d: %w", id, models.ErrNotFound)
	}
	delete(m.users, id)
	for tid, task := range m.tasks {
		if task.UserID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func cloneTask(t models.Task) models.Task {
	if t.End != nil {
		end := *t.End
		t.End = &end
	}
	return t
}
