// Package calendar управляет календарём с перетаскиванием: броски, переносы
// и растяжения превращаются в обновления позиции на сервере, а при отказе
// сервера вид откатывается.
package calendar

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"todo-calendar/internal/client"
	"todo-calendar/internal/logger"
	"todo-calendar/internal/models"
)

type API interface {
	UpdateTaskPosition(ctx context.Context, taskID, startDate, endDate string) error
	AddTask(ctx context.Context, task client.NewTask) (models.CreatedTask, error)
}

// Renderer - всё, что контроллер делает с экраном.
type Renderer interface {
	Reload(ctx context.Context)
	RenderEvent(ev Event)
	AppendExternal(item ExternalItem)
	ClearForm()
	CloseDialog()
}

// Event - событие в том виде, в каком его держит календарь.
type Event struct {
	ID     string
	Title  string
	Start  time.Time
	End    *time.Time
	AllDay bool
}

func (e Event) layout() string {
	if e.AllDay {
		return models.DateLayout
	}
	return models.DateTimeLayout
}

func (e Event) startString() string {
	return e.Start.Format(e.layout())
}

// endString: без конца событие заканчивается там же, где начинается.
func (e Event) endString() string {
	if e.End == nil {
		return e.startString()
	}
	return e.End.Format(e.layout())
}

// ExternalItem - ещё не запланированная задача из списка рядом с календарём.
type ExternalItem struct {
	ElementID string
	TaskID    string
	Title     string
}

type Form struct {
	Title       string
	Description string
	Type        string
}

type Controller struct {
	api  API
	view Renderer
	now  func() time.Time

	mu      sync.Mutex
	items   map[string]ExternalItem
	dropped map[string]bool
}

func New(api API, view Renderer) *Controller {
	return &Controller{
		api:     api,
		view:    view,
		now:     time.Now,
		items:   make(map[string]ExternalItem),
		dropped: make(map[string]bool),
	}
}

// Init регистрирует перетаскиваемые элементы и отдаёт настройки вида.
func (c *Controller) Init(items []ExternalItem) Options {
	c.mu.Lock()
	for _, item := range items {
		c.items[item.ElementID] = item
	}
	c.mu.Unlock()
	return DefaultOptions()
}

func (c *Controller) Items() []ExternalItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ExternalItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ElementID < out[j].ElementID })
	return out
}

// Drop - внешний элемент брошен на день календаря. Дата уходит и началом,
// и концом. Только первый бросок элемента перезагружает вид.
func (c *Controller) Drop(ctx context.Context, elementID string, date time.Time) {
	c.mu.Lock()
	item, ok := c.items[elementID]
	c.mu.Unlock()
	if !ok {
		logger.Error(ctx, nil, "Unknown external item", "element", elementID)
		return
	}

	day := date.Format(models.DateLayout)
	c.updatePosition(ctx, item.TaskID, day, day, nil)

	c.mu.Lock()
	first := !c.dropped[elementID]
	c.dropped[elementID] = true
	c.mu.Unlock()

	if first {
		c.view.Reload(ctx)
	}
}

// EventDrop - существующее событие перенесено; при отказе сервера вызывается revert.
func (c *Controller) EventDrop(ctx context.Context, ev Event, revert func()) {
	c.updatePosition(ctx, ev.ID, ev.startString(), ev.endString(), revert)
}

// EventResize - у события изменилась длительность; контракт как у EventDrop.
func (c *Controller) EventResize(ctx context.Context, ev Event, revert func()) {
	c.updatePosition(ctx, ev.ID, ev.startString(), ev.endString(), revert)
}

func (c *Controller) updatePosition(ctx context.Context, taskID, start, end string, revert func()) {
	if err := c.api.UpdateTaskPosition(ctx, taskID, start, end); err != nil {
		logger.Error(ctx, err, "Error updating task position", "taskID", taskID, "start", start, "end", end)
		if revert != nil {
			revert()
		}
		return
	}
	logger.Info(ctx, "Task position updated successfully.", "taskID", taskID)
}

// CreateTask отправляет форму. При успехе задача появляется в списке
// внешних элементов, форма очищается, диалог закрывается, вид
// перезагружается и на сегодня дорисовывается событие на весь день.
func (c *Controller) CreateTask(ctx context.Context, form Form) {
	created, err := c.api.AddTask(ctx, client.NewTask{
		Title:       form.Title,
		Description: form.Description,
		Type:        form.Type,
	})
	if err != nil {
		logger.Error(ctx, err, "Error creating task")
		return
	}

	taskID := strconv.Itoa(created.ID)
	item := ExternalItem{
		ElementID: "task-" + taskID,
		TaskID:    taskID,
		Title:     form.Title,
	}
	c.mu.Lock()
	c.items[item.ElementID] = item
	c.mu.Unlock()

	c.view.AppendExternal(item)
	c.view.ClearForm()
	c.view.CloseDialog()
	c.view.Reload(ctx)
	c.view.RenderEvent(Event{Title: form.Title, Start: c.now(), AllDay: true})
}
