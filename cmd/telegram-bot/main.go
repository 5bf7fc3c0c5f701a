package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"todo-calendar/internal/config"
	"todo-calendar/internal/logger"
	"todo-calendar/internal/manager"
	"todo-calendar/internal/models"
	"todo-calendar/internal/storage"
)

type Bot struct {
	api   *tgbotapi.BotAPI
	tasks *manager.TaskManager
	users *manager.UserManager
}

func NewBot(token string, debug bool, tm *manager.TaskManager, um *manager.UserManager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания бота: %w", err)
	}
	api.Debug = debug
	logger.Info(context.Background(), "Авторизован", "bot", api.Self.UserName)

	return &Bot{api: api, tasks: tm, users: um}, nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("ошибка получения updates: %w", err)
	}

	logger.Info(context.Background(), "Бот запущен и слушает сообщения...")
	for update := range updates {
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		go b.handleMessage(update.Message)
	}
	return nil
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ctx := logger.WithFields(context.Background(), "chat", msg.Chat.ID, "user", msg.From.UserName)
	logger.Debug(ctx, "Получено сообщение", "text", msg.Text)

	command, args := "add", msg.Text
	if msg.IsCommand() {
		command, args = msg.Command(), msg.CommandArguments()
	}

	b.send(ctx, msg.Chat.ID, b.reply(ctx, int64(msg.From.ID), command, args))
}

// reply выполняет команду от имени пользователя Telegram и возвращает ответ.
func (b *Bot) reply(ctx context.Context, telegramID int64, command, args string) string {
	user, err := b.users.GetOrCreateUserByTelegramID(ctx, telegramID)
	if err != nil {
		logger.Error(ctx, err, "Ошибка получения пользователя")
		return "❌ Внутренняя ошибка, попробуйте позже"
	}

	switch command {
	case "start":
		return welcomeText
	case "help":
		return helpText
	case "add":
		return b.addTask(ctx, user, args)
	case "list":
		return b.listTasks(ctx, user)
	case "done":
		return b.completeTask(ctx, user, args)
	case "stats":
		return b.stats(ctx, user)
	default:
		return "Неизвестная команда. Используйте /help для списка команд."
	}
}

// markdownEscaper экранирует символы разметки Telegram Markdown в пользовательском тексте.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func failure(ctx context.Context, err error) string {
	if manager.IsClientError(err) {
		return "❌ Ошибка: " + escapeMarkdown(err.Error())
	}
	logger.Error(ctx, err, "Ошибка обработки команды")
	return "❌ Внутренняя ошибка, попробуйте позже"
}

// addTask: "/add Купить молоко | описание", префикс "multi:" делает задачу многодневной.
func (b *Bot) addTask(ctx context.Context, user *models.User, args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return "Укажите задачу после команды: /add Купить молоко"
	}

	req := models.CreateTaskRequest{Type: string(models.TaskSingle)}
	if rest, ok := strings.CutPrefix(args, "multi:"); ok {
		req.Type = string(models.TaskMulti)
		args = strings.TrimSpace(rest)
	}
	req.Title, req.Description, _ = strings.Cut(args, "|")
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	task, err := b.tasks.AddTask(ctx, user.ID, req)
	if err != nil {
		return failure(ctx, err)
	}
	return fmt.Sprintf("✅ *Задача добавлена!*\n\nID: #%d\nЗадача: %s", task.ID, escapeMarkdown(task.Title))
}

func (b *Bot) listTasks(ctx context.Context, user *models.User) string {
	tasks, err := b.tasks.ListTasks(ctx, user.ID)
	if err != nil {
		return failure(ctx, err)
	}
	if len(tasks) == 0 {
		return "📭 Список задач пуст"
	}

	var response strings.Builder
	response.WriteString("📋 *Ваши задачи:*\n\n")
	for _, task := range tasks {
		status := "🟢"
		switch {
		case task.Completed:
			status = "✅"
		case task.Expired:
			status = "⏰"
		}
		ev := task.ToEvent()
		fmt.Fprintf(&response, "%s #%d: %s (%s)\n", status, task.ID, escapeMarkdown(task.Title), ev.Start)
	}
	return response.String()
}

func (b *Bot) completeTask(ctx context.Context, user *models.User, args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return "Укажите номер задачи: /done 1"
	}
	taskID, err := strconv.Atoi(args)
	if err != nil {
		return "Номер задачи должен быть числом"
	}

	if _, err := b.tasks.Complete(ctx, user.ID, taskID); err != nil {
		return failure(ctx, err)
	}
	return fmt.Sprintf("✅ Задача #%d отмечена выполненной!", taskID)
}

func (b *Bot) stats(ctx context.Context, user *models.User) string {
	stats, err := b.tasks.Stats(ctx, user)
	if err != nil {
		return failure(ctx, err)
	}
	return fmt.Sprintf("📊 Всего: %d\nВыполнено: %d\nОсталось: %d", stats.All, stats.Completed, stats.Incomplete)
}

const welcomeText = `🎯 *Добро пожаловать в TodoBot!*

*Доступные команды:*
/add [задача] - Добавить задачу
/list - Показать все задачи
/done [номер] - Отметить задачу выполненной
/stats - Статистика
/help - Помощь

*Примеры:*
/add Купить молоко
/add multi: Отпуск | море
/done 1`

const helpText = `🤖 *Помощь по командам*

*/start* - Начать работу с ботом
*/add [задача] | [описание]* - Добавить новую задачу
*/add multi: [задача]* - Добавить многодневную задачу
*/list* - Показать все задачи
*/done [номер]* - Отметить задачу выполненной
*/stats* - Сколько задач выполнено
*/help* - Показать эту справку

Сообщение без команды тоже станет задачей.`

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := b.api.Send(msg); err != nil {
		logger.Error(ctx, err, "Ошибка отправки сообщения")
	}
}

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
	logger.Info(ctx, "Запуск Telegram-бота...")

	if cfg.Telegram.Token == "" {
		logger.Error(ctx, fmt.Errorf("token is empty"), "Не задан токен бота (TELEGRAM_TOKEN или telegram.token)")
		os.Exit(1)
	}

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

	bot, err := NewBot(cfg.Telegram.Token, cfg.Telegram.Debug,
		manager.NewTaskManager(dbStorage), manager.NewUserManager(dbStorage))
	if err != nil {
		logger.Error(ctx, err, "Ошибка создания бота")
		return
	}

	if err := bot.Start(); err != nil {
		logger.Error(ctx, err, "Бот остановлен")
	}
}
