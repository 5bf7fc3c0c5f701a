// Package toggler отмечает задачи выполненными по нажатию на переключатель.
package toggler

import (
	"context"

	"todo-calendar/internal/logger"
)

type Completer interface {
	Complete(ctx context.Context, taskID string) error
}

// Reloader перерисовывает весь вид целиком.
type Reloader interface {
	Reload(ctx context.Context)
}

type Toggler struct {
	api  Completer
	view Reloader
}

func New(api Completer, view Reloader) *Toggler {
	return &Toggler{api: api, view: view}
}

// Activate отправляет один запрос на выполнение задачи. При успехе вид
// перезагружается один раз, при ошибке только пишется лог.
// Повторные и параллельные вызовы не склеиваются.
func (t *Toggler) Activate(ctx context.Context, taskID string) {
	if err := t.api.Complete(ctx, taskID); err != nil {
		logger.Error(ctx, err, "Error", "taskID", taskID)
		return
	}
	t.view.Reload(ctx)
}
