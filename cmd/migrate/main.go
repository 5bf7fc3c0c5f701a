package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"todo-calendar/internal/config"
	"todo-calendar/internal/logger"
	"todo-calendar/internal/manager"
	"todo-calendar/internal/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "путь к файлу конфигурации")
	username := flag.String("user", "", "создать пользователя с этим именем")
	password := flag.String("password", "", "пароль нового пользователя")
	telegramID := flag.Int64("telegram-id", 0, "привязать Telegram ID к новому пользователю")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		logger.Error(ctx, err, "Ошибка загрузки конфигурации")
		os.Exit(1)
	}

	logger.Info(ctx, "🔄 Создание базы данных...", "db", cfg.Server.DBPath)
	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o755); err != nil {
		logger.Error(ctx, err, "❌ Ошибка создания директории")
		os.Exit(1)
	}

	// Схема создаётся при открытии хранилища.
	db, err := storage.NewSQLiteStorage(cfg.Server.DBPath)
	if err != nil {
		logger.Error(ctx, err, "❌ Ошибка открытия БД")
		os.Exit(1)
	}
	defer db.Close()
	logger.Info(ctx, "✅ Таблицы созданы")

	if *username != "" {
		users := manager.NewUserManager(db)
		user, err := users.Register(ctx, *username, *password)
		if err != nil {
			logger.Error(ctx, err, "⚠️ Пользователь не создан")
			os.Exit(1)
		}
		logger.Info(ctx, "✅ Пользователь создан", "id", user.ID, "username", user.Username)

		if *telegramID != 0 {
			if err := db.SetTelegramID(ctx, user.ID, *telegramID); err != nil {
				logger.Error(ctx, err, "⚠️ Ошибка привязки Telegram ID")
				os.Exit(1)
			}
			logger.Info(ctx, "✅ Telegram ID привязан", "telegramID", *telegramID)
		}
	}

	logger.Info(ctx, "🎉 Миграция завершена успешно!")
}
