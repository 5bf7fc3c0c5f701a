package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"todo-calendar/internal/auth"
	"todo-calendar/internal/config"
	"todo-calendar/internal/logger"
	"todo-calendar/internal/manager"
	"todo-calendar/internal/scheduler"
	"todo-calendar/internal/server"
	"todo-calendar/internal/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "путь к файлу конфигурации")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		logger.Error(ctx, err, "Ошибка загрузки конфигурации")
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.Info(ctx, "Запуск сервера задач...", "addr", cfg.Server.Addr, "db", cfg.Server.DBPath)

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o755); err != nil {
		logger.Error(ctx, err, "Ошибка создания директории для БД")
		os.Exit(1)
	}

	dbStorage, err := storage.NewSQLiteStorage(cfg.Server.DBPath)
	if err != nil {
		logger.Error(ctx, err, "Ошибка инициализации SQLite хранилища")
		os.Exit(1)
	}
	defer dbStorage.Close()

	taskManager := manager.NewTaskManager(dbStorage)
	userManager := manager.NewUserManager(dbStorage)
	sessions := auth.NewStore(cfg.Server.SessionTTL.Duration)

	jobs := scheduler.New(nil)
	if _, err := jobs.Every(cfg.Server.ExpireSpec, "expire-overdue", func(ctx context.Context) error {
		_, err := taskManager.ExpireOverdue(ctx)
		return err
	}); err != nil {
		logger.Error(ctx, err, "Ошибка настройки планировщика")
		os.Exit(1)
	}
	if _, err := jobs.Every("@every 10m", "sweep-sessions", func(ctx context.Context) error {
		if n := sessions.Sweep(); n > 0 {
			logger.Debug(ctx, "Удалены истёкшие сессии", "count", n)
		}
		return nil
	}); err != nil {
		logger.Error(ctx, err, "Ошибка настройки планировщика")
		os.Exit(1)
	}
	jobs.Start()
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(taskManager, userManager, sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "Сервер слушает", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, err, "Ошибка HTTP сервера")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info(ctx, "Остановка сервера...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, err, "Ошибка остановки сервера")
	}
}
