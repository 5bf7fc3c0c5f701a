package toggler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"todo-calendar/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingView struct {
	reloads atomic.Int32
}

func (v *countingView) Reload(context.Context) { v.reloads.Add(1) }

type fakeAPI struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeAPI) Complete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return f.err
}

func TestActivateSuccessReloadsOnce(t *testing.T) {
	api := &fakeAPI{}
	view := &countingView{}

	New(api, view).Activate(context.Background(), "42")

	assert.Equal(t, []string{"42"}, api.calls)
	assert.EqualValues(t, 1, view.reloads.Load())
}

func TestActivateFailureDoesNotReload(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	view := &countingView{}

	New(api, view).Activate(context.Background(), "42")

	assert.Len(t, api.calls, 1)
	assert.Zero(t, view.reloads.Load())
}

func TestActivateIsNotDeduplicated(t *testing.T) {
	api := &fakeAPI{}
	view := &countingView{}
	tg := New(api, view)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tg.Activate(context.Background(), "7")
		}()
	}
	wg.Wait()

	assert.Len(t, api.calls, 5)
	assert.EqualValues(t, 5, view.reloads.Load())
}

// Сценарий: кнопка задачи "42" -> POST /complete/42 -> 200 -> перезагрузка; 500 -> только лог.
func TestActivateAgainstHTTPServer(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	var gotPath atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.Method + " " + r.URL.Path)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	api, err := client.New(srv.URL)
	require.NoError(t, err)
	view := &countingView{}
	tg := New(api, view)

	tg.Activate(context.Background(), "42")
	assert.Equal(t, "POST /complete/42", gotPath.Load())
	assert.EqualValues(t, 1, view.reloads.Load())

	status.Store(http.StatusInternalServerError)
	tg.Activate(context.Background(), "42")
	assert.EqualValues(t, 1, view.reloads.Load())
}
