// Package console выводит календарь и список задач в терминал для CLI.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"todo-calendar/internal/calendar"
	"todo-calendar/internal/logger"
	"todo-calendar/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	externalMark = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("+")
)

// Feed отдаёт текущую ленту событий.
type Feed interface {
	FetchTasks(ctx context.Context) ([]models.Event, error)
}

// Board - консольный вид календаря: перезагрузка заново печатает ленту.
type Board struct {
	feed Feed
	out  io.Writer

	mu      sync.Mutex
	reloads int
}

func NewBoard(feed Feed, out io.Writer) *Board {
	return &Board{feed: feed, out: out}
}

func (b *Board) Reload(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil {
		logger.Error(ctx, err, "Не удалось обновить вид")
	}
}

// Refresh - то же, что Reload, но ошибку отдаёт вызывающему.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads++

	feed, err := b.feed.FetchTasks(ctx)
	if err != nil {
		return fmt.Errorf("загрузка задач: %w", err)
	}
	events, err := calendar.FromFeed(feed)
	if err != nil {
		return fmt.Errorf("разбор ленты: %w", err)
	}

	fmt.Fprintln(b.out, titleStyle.Render(fmt.Sprintf("Задачи (%d)", len(events))))
	for _, ev := range events {
		b.printEvent(ev)
	}
	return nil
}

// Reloads - сколько раз вид перезагружался.
func (b *Board) Reloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reloads
}

func (b *Board) RenderEvent(ev calendar.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.printEvent(ev)
}

func (b *Board) printEvent(ev calendar.Event) {
	layout := models.DateTimeLayout
	if ev.AllDay {
		layout = models.DateLayout
	}
	when := ev.Start.Format(layout)
	if ev.End != nil && !ev.End.Equal(ev.Start) {
		when += " .. " + ev.End.Format(layout)
	}
	id := ev.ID
	if id == "" {
		id = "-"
	}
	fmt.Fprintf(b.out, "  %s %s %s\n", idStyle.Render("#"+id), ev.Title, dateStyle.Render(when))
}

func (b *Board) AppendExternal(item calendar.ExternalItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, "%s %s %s (%s)\n", externalMark, idStyle.Render("#"+item.TaskID), item.Title, item.ElementID)
}

func (b *Board) ClearForm() {
	logger.Debug(context.Background(), "Форма очищена")
}

func (b *Board) CloseDialog() {
	logger.Debug(context.Background(), "Диалог закрыт")
}

// Items строит внешние элементы из ленты: элемент "task-<id>" на каждую задачу.
func Items(feed []models.Event) []calendar.ExternalItem {
	items := make([]calendar.ExternalItem, 0, len(feed))
	for _, ev := range feed {
		id := fmt.Sprint(ev.ID)
		items = append(items, calendar.ExternalItem{
			ElementID: "task-" + id,
			TaskID:    id,
			Title:     ev.Title,
		})
	}
	return items
}
