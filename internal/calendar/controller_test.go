package calendar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"todo-calendar/internal/client"
	"todo-calendar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type positionCall struct {
	taskID, start, end string
}

type fakeAPI struct {
	mu        sync.Mutex
	positions []positionCall
	added     []client.NewTask
	updateErr error
	addErr    error
	nextID    int
}

func (f *fakeAPI) UpdateTaskPosition(_ context.Context, taskID, start, end string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, positionCall{taskID, start, end})
	return f.updateErr
}

func (f *fakeAPI) AddTask(_ context.Context, task client.NewTask) (models.CreatedTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return models.CreatedTask{}, f.addErr
	}
	f.added = append(f.added, task)
	f.nextID++
	return models.CreatedTask{ID: f.nextID, Title: task.Title}, nil
}

// recordingView пишет вызовы в порядке их поступления.
type recordingView struct {
	mu       sync.Mutex
	calls    []string
	reloads  int
	rendered []Event
	appended []ExternalItem
}

func (v *recordingView) record(name string) {
	v.mu.Lock()
	v.calls = append(v.calls, name)
	v.mu.Unlock()
}

func (v *recordingView) Reload(context.Context) {
	v.record("reload")
	v.mu.Lock()
	v.reloads++
	v.mu.Unlock()
}

func (v *recordingView) RenderEvent(ev Event) {
	v.record("render")
	v.mu.Lock()
	v.rendered = append(v.rendered, ev)
	v.mu.Unlock()
}

func (v *recordingView) AppendExternal(item ExternalItem) {
	v.record("append")
	v.mu.Lock()
	v.appended = append(v.appended, item)
	v.mu.Unlock()
}

func (v *recordingView) ClearForm() { v.record("clear") }
func (v *recordingView) CloseDialog() { v.record("close") }

func TestInitRegistersItemsAndReturnsOptions(t *testing.T) {
	c := New(&fakeAPI{}, &recordingView{})
	opts := c.Init([]ExternalItem{
		{ElementID: "b", TaskID: "2", Title: "второй"},
		{ElementID: "a", TaskID: "1", Title: "первый"},
	})

	assert.True(t, opts.Editable)
	assert.True(t, opts.Droppable)
	assert.Equal(t, "/fetch_tasks", opts.EventsURL)
	assert.Equal(t, "month,agendaWeek,agendaDay", opts.Header.Right)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ElementID)
}

func TestDropReloadsOnlyOnFirstDropPerElement(t *testing.T) {
	api := &fakeAPI{}
	view := &recordingView{}
	c := New(api, view)
	c.Init([]ExternalItem{
		{ElementID: "el-1", TaskID: "10", Title: "a"},
		{ElementID: "el-2", TaskID: "20", Title: "b"},
	})
	ctx := context.Background()
	day := time.Date(2024, 7, 3, 15, 0, 0, 0, time.UTC)

	c.Drop(ctx, "el-1", day)
	assert.Equal(t, 1, view.reloads)

	c.Drop(ctx, "el-1", day.AddDate(0, 0, 1))
	c.Drop(ctx, "el-1", day.AddDate(0, 0, 2))
	assert.Equal(t, 1, view.reloads)

	c.Drop(ctx, "el-2", day)
	assert.Equal(t, 2, view.reloads)

	require.Len(t, api.positions, 4)
	assert.Equal(t, positionCall{"10", "2024-07-03", "2024-07-03"}, api.positions[0])
	assert.Equal(t, positionCall{"10", "2024-07-04", "2024-07-04"}, api.positions[1])
}

func TestDropReloadsEvenWhenUpdateFails(t *testing.T) {
	api := &fakeAPI{updateErr: errors.New("500")}
	view := &recordingView{}
	c := New(api, view)
	c.Init([]ExternalItem{{ElementID: "el", TaskID: "1"}})

	c.Drop(context.Background(), "el", time.Now())
	assert.Equal(t, 1, view.reloads)
}

func TestDropUnknownElementDoesNothing(t *testing.T) {
	api := &fakeAPI{}
	view := &recordingView{}
	New(api, view).Drop(context.Background(), "ghost", time.Now())

	assert.Empty(t, api.positions)
	assert.Zero(t, view.reloads)
}

func TestEventDropSuccessKeepsPosition(t *testing.T) {
	api := &fakeAPI{}
	view := &recordingView{}
	c := New(api, view)

	reverts := 0
	start := time.Date(2024, 7, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	c.EventDrop(context.Background(), Event{ID: "5", Start: start, End: &end}, func() { reverts++ })

	assert.Zero(t, reverts)
	assert.Zero(t, view.reloads)
	require.Len(t, api.positions, 1)
	assert.Equal(t, positionCall{"5", "2024-07-03T09:00:00", "2024-07-03T11:00:00"}, api.positions[0])
}

func TestEventDropWithoutEndUsesStart(t *testing.T) {
	api := &fakeAPI{}
	c := New(api, &recordingView{})

	start := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
	c.EventDrop(context.Background(), Event{ID: "5", Start: start, AllDay: true}, nil)

	require.Len(t, api.positions, 1)
	assert.Equal(t, positionCall{"5", "2024-07-03", "2024-07-03"}, api.positions[0])
}

func TestFailedUpdateRevertsExactlyOnceWithoutReload(t *testing.T) {
	for name, act := range map[string]func(*Controller, Event, func()){
		"drag": func(c *Controller, ev Event, revert func()) {
			c.EventDrop(context.Background(), ev, revert)
		},
		"resize": func(c *Controller, ev Event, revert func()) {
			c.EventResize(context.Background(), ev, revert)
		},
	} {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{updateErr: &client.StatusError{Path: "/update_task_position", StatusCode: 403}}
			view := &recordingView{}
			c := New(api, view)

			reverts := 0
			end := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
			act(c, Event{ID: "9", Start: end.AddDate(0, 0, -1), End: &end}, func() { reverts++ })

			assert.Equal(t, 1, reverts)
			assert.Zero(t, view.reloads)
		})
	}
}

func TestFailedUpdateWithoutRevertIsLoggedOnly(t *testing.T) {
	api := &fakeAPI{updateErr: errors.New("timeout")}
	view := &recordingView{}
	c := New(api, view)

	assert.NotPanics(t, func() {
		c.EventResize(context.Background(), Event{ID: "1", Start: time.Now()}, nil)
	})
	assert.Empty(t, view.calls)
}

func TestCreateTaskSuccessSequence(t *testing.T) {
	api := &fakeAPI{nextID: 41}
	view := &recordingView{}
	c := New(api, view)
	today := time.Date(2024, 7, 3, 13, 45, 0, 0, time.UTC)
	c.now = func() time.Time { return today }

	c.CreateTask(context.Background(), Form{Title: "Позвонить", Description: "маме", Type: "single"})

	require.Len(t, api.added, 1)
	assert.Equal(t, client.NewTask{Title: "Позвонить", Description: "маме", Type: "single"}, api.added[0])

	assert.Equal(t, []string{"append", "clear", "close", "reload", "render"}, view.calls)
	assert.Equal(t, ExternalItem{ElementID: "task-42", TaskID: "42", Title: "Позвонить"}, view.appended[0])

	require.Len(t, view.rendered, 1)
	assert.True(t, view.rendered[0].AllDay)
	assert.Equal(t, "2024-07-03", view.rendered[0].startString())

	// новая задача сразу доступна для броска на календарь
	c.Drop(context.Background(), "task-42", today)
	require.Len(t, api.positions, 1)
	assert.Equal(t, "42", api.positions[0].taskID)
}

func TestCreateTaskFailureTouchesNothing(t *testing.T) {
	api := &fakeAPI{addErr: &client.StatusError{Path: "/add_task", StatusCode: 400, Message: "Title is required"}}
	view := &recordingView{}
	c := New(api, view)

	c.CreateTask(context.Background(), Form{})

	assert.Empty(t, view.calls)
	assert.Empty(t, c.Items())
}

func TestFromFeed(t *testing.T) {
	end := "2024-03-05"
	tsEnd := "2024-03-01T10:00:00"
	events, err := FromFeed([]models.Event{
		{ID: 1, Title: "multi", Start: "2024-03-01", End: &end},
		{ID: 2, Title: "single", Start: "2024-03-01T09:00:00", End: &tsEnd},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.True(t, events[0].AllDay)
	assert.Equal(t, "1", events[0].ID)
	assert.Equal(t, "2024-03-05", events[0].endString())

	assert.False(t, events[1].AllDay)
	assert.Equal(t, "2024-03-01T10:00:00", events[1].endString())

	_, err = FromFeed([]models.Event{{ID: 3, Start: "не дата"}})
	assert.Error(t, err)
}
