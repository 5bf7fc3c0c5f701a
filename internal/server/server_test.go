package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"todo-calendar/internal/auth"
	"todo-calendar/internal/calendar"
	"todo-calendar/internal/client"
	"todo-calendar/internal/manager"
	"todo-calendar/internal/models"
	"todo-calendar/internal/storage"
	"todo-calendar/internal/toggler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv   *httptest.Server
	tasks *manager.TaskManager
	users *manager.UserManager
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	st := storage.NewMemoryStorage()
	tm := manager.NewTaskManager(st)
	um := manager.NewUserManager(st)
	um.SetPasswordCost(bcrypt.MinCost)

	srv := httptest.NewServer(NewRouter(tm, um, auth.NewStore(time.Hour)))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, tasks: tm, users: um}
}

func (e *testEnv) login(t *testing.T, username string) *client.Client {
	t.Helper()
	c, err := client.New(e.srv.URL)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, username, "password123"))
	_, err = c.Login(ctx, username, "password123")
	require.NoError(t, err)
	return c
}

func statusOf(err error) int {
	var se *client.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

type countingView struct {
	reloads atomic.Int32
}

func (v *countingView) Reload(context.Context) { v.reloads.Add(1) }
func (v *countingView) RenderEvent(calendar.Event) {}
func (v *countingView) AppendExternal(calendar.ExternalItem) {}
func (v *countingView) ClearForm() {}
func (v *countingView) CloseDialog() {}

func TestProtectedEndpointsRequireLogin(t *testing.T) {
	env := newEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/fetch_tasks"},
		{http.MethodPost, "/add_task"},
		{http.MethodPost, "/complete/1"},
		{http.MethodPost, "/update_task_position"},
		{http.MethodGet, "/profile"},
	} {
		req, err := http.NewRequest(tc.method, env.srv.URL+tc.path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.path)
	}
}

func TestAddTaskAndFetchFeed(t *testing.T) {
	env := newEnv(t)
	c := env.login(t, "alice")
	ctx := context.Background()

	created, err := c.AddTask(ctx, client.NewTask{Title: "отпуск", Description: "море", Type: "multi"})
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, models.TaskMulti, created.Type)

	require.NoError(t, c.UpdateTaskPosition(ctx, "1", "2024-08-01", "2024-08-10"))

	events, err := c.FetchTasks(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-08-01", events[0].Start)
	require.NotNil(t, events[0].End)
	assert.Equal(t, "2024-08-10", *events[0].End)
	assert.True(t, events[0].Editable)
}

func TestAddTaskValidationAndCSRF(t *testing.T) {
	env := newEnv(t)
	c := env.login(t, "alice")
	ctx := context.Background()

	_, err := c.AddTask(ctx, client.NewTask{Title: ""})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
	assert.True(t, errors.Is(err, client.ErrRejected))

	st := c.State()
	st.CSRFToken = "forged"
	c.Restore(st)
	_, err = c.AddTask(ctx, client.NewTask{Title: "x"})
	assert.Equal(t, http.StatusForbidden, statusOf(err))
}

func TestUpdatePositionErrors(t *testing.T) {
	env := newEnv(t)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")
	ctx := context.Background()

	_, err := alice.AddTask(ctx, client.NewTask{Title: "секрет"})
	require.NoError(t, err)

	err = bob.UpdateTaskPosition(ctx, "1", "2024-01-01", "2024-01-01")
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	err = alice.UpdateTaskPosition(ctx, "99", "2024-01-01", "2024-01-01")
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	err = alice.UpdateTaskPosition(ctx, "1", "завтра", "2024-01-01")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	err = alice.UpdateTaskPosition(ctx, "abc", "2024-01-01", "2024-01-01")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestCompletionScenario(t *testing.T) {
	env := newEnv(t)
	c := env.login(t, "alice")
	ctx := context.Background()

	_, err := c.AddTask(ctx, client.NewTask{Title: "задача"})
	require.NoError(t, err)

	view := &countingView{}
	tg := toggler.New(c, view)

	tg.Activate(ctx, "1")
	assert.EqualValues(t, 1, view.reloads.Load())

	stats, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 0, stats.Incomplete)

	// неизвестная задача: 404, без перезагрузки
	tg.Activate(ctx, "42")
	assert.EqualValues(t, 1, view.reloads.Load())
}

func TestCalendarRevertsOnForbiddenMove(t *testing.T) {
	env := newEnv(t)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")
	ctx := context.Background()

	_, err := alice.AddTask(ctx, client.NewTask{Title: "чужая"})
	require.NoError(t, err)

	view := &countingView{}
	ctrl := calendar.New(bob, view)

	reverts := 0
	start := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	ctrl.EventDrop(ctx, calendar.Event{ID: "1", Start: start}, func() { reverts++ })
	assert.Equal(t, 1, reverts)
	assert.Zero(t, view.reloads.Load())

	own := calendar.New(alice, view)
	own.EventResize(ctx, calendar.Event{ID: "1", Start: start}, func() { reverts++ })
	assert.Equal(t, 1, reverts)
}

func TestCalendarCreateThenDrop(t *testing.T) {
	env := newEnv(t)
	c := env.login(t, "alice")
	ctx := context.Background()

	view := &countingView{}
	ctrl := calendar.New(c, view)
	ctrl.Init(nil)

	ctrl.CreateTask(ctx, calendar.Form{Title: "новая", Type: "single"})
	assert.EqualValues(t, 1, view.reloads.Load())

	day := time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)
	ctrl.Drop(ctx, "task-1", day)
	ctrl.Drop(ctx, "task-1", day.AddDate(0, 0, 1))
	assert.EqualValues(t, 2, view.reloads.Load())

	events, err := c.FetchTasks(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-10-06T00:00:00", events[0].Start)
}

func TestProfilePasswordAndDeleteAccount(t *testing.T) {
	env := newEnv(t)
	c := env.login(t, "alice")
	ctx := context.Background()

	post := func(path string, form url.Values) *http.Response {
		st := c.State()
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+path, strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: st.Session})
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp
	}

	resp := post("/change_password", url.Values{
		"current_password":     {"password123"},
		"new_password":         {"newpassword1"},
		"confirm_new_password": {"mismatch"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post("/change_password", url.Values{
		"current_password":     {"password123"},
		"new_password":         {"newpassword1"},
		"confirm_new_password": {"newpassword1"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post("/delete_account", url.Values{"password": {"password123"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post("/delete_account", url.Values{"password": {"newpassword1"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// сессия удалённого пользователя больше не действует
	_, err := c.FetchTasks(ctx)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newEnv(t)
	env.login(t, "alice")

	c, err := client.New(env.srv.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "alice", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestLogout(t *testing.T) {
	env := newEnv(t)
	c := env.login(t, "alice")
	ctx := context.Background()

	require.NoError(t, c.Logout(ctx))
	_, err := c.FetchTasks(ctx)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t)

	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "todoapp_add_task_duration_seconds")
}
