package manager

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"todo-calendar/internal/logger"
	"todo-calendar/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	minUsernameLength = 3
	maxUsernameLength = 32
)

type UserManager struct {
	storage Storage
	cost    int
}

func NewUserManager(storage Storage) *UserManager {
	return &UserManager{
		storage: storage,
		cost:    bcrypt.DefaultCost,
	}
}

// SetPasswordCost меняет стоимость bcrypt; в тестах удобно bcrypt.MinCost.
func (um *UserManager) SetPasswordCost(cost int) {
	um.cost = cost
}

func (um *UserManager) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), um.cost)
	if err != nil {
		return "", fmt.Errorf("хеширование пароля: %w", err)
	}
	return string(h), nil
}

func checkPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// Register создаёт пользователя с логином и паролем
func (um *UserManager) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return nil, validationError("имя пользователя должно быть от %d до %d символов", minUsernameLength, maxUsernameLength)
	}
	if len(password) < minPasswordLength {
		return nil, validationError("пароль должен быть не короче %d символов", minPasswordLength)
	}

	hash, err := um.hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := um.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Пользователь зарегистрирован", "userID", user.ID, "username", username)
	return user, nil
}

// Authenticate проверяет логин и пароль. Неизвестный логин и неверный пароль неразличимы.
func (um *UserManager) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := um.storage.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("неверный логин или пароль: %w", models.ErrUnauthorized)
		}
		return nil, err
	}
	if !checkPassword(user, password) {
		return nil, fmt.Errorf("неверный логин или пароль: %w", models.ErrUnauthorized)
	}
	return user, nil
}

func (um *UserManager) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	return um.storage.GetUserByID(ctx, userID)
}

// ChangePassword: все поля обязательны, новый пароль подтверждён и не короче 8 символов.
func (um *UserManager) ChangePassword(ctx context.Context, userID int, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return validationError("все поля обязательны")
	}

	user, err := um.storage.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPassword(user, current) {
		return validationError("неверный текущий пароль")
	}
	if next != confirm {
		return validationError("новые пароли не совпадают")
	}
	if len(next) < minPasswordLength {
		return validationError("новый пароль должен быть не короче %d символов", minPasswordLength)
	}

	hash, err := um.hash(next)
	if err != nil {
		return err
	}
	if err := um.storage.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	logger.Info(ctx, "Пароль изменён", "userID", userID)
	return nil
}

// DeleteAccount удаляет пользователя и все его задачи после проверки пароля.
func (um *UserManager) DeleteAccount(ctx context.Context, userID int, password string) error {
	user, err := um.storage.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if password == "" || !checkPassword(user, password) {
		return validationError("неверный пароль")
	}

	removed, err := um.storage.DeleteUserTasks(ctx, userID)
	if err != nil {
		return fmt.Errorf("удаление задач: %w", err)
	}
	if err := um.storage.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("удаление пользователя: %w", err)
	}

	logger.Info(ctx, "Аккаунт удалён", "userID", userID, "tasks", removed)
	return nil
}

// GetOrCreateUserByTelegramID находит пользователя бота или заводит нового со случайным паролем.
func (um *UserManager) GetOrCreateUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := um.storage.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hash, err := um.hash(hex.EncodeToString(secret))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user = &models.User{
		Username:     fmt.Sprintf("telegram_%d", telegramID),
		PasswordHash: hash,
		TelegramID:   telegramID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := um.storage.CreateUser(ctx, user); err != nil {
		// параллельное сообщение того же пользователя успело создать запись
		if errors.Is(err, models.ErrConflict) {
			return um.storage.GetUserByTelegramID(ctx, telegramID)
		}
		return nil, err
	}

	logger.Info(ctx, "Пользователь создан по Telegram ID", "userID", user.ID, "telegramID", telegramID)
	return user, nil
}
