package scheduler

import (
	"context"
	"fmt"
	"time"

	"todo-calendar/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler - фоновые задачи по расписанию cron.
type Scheduler struct {
	cron *cron.Cron
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DiscardLogger))),
	}
}

// Every ставит job на расписание ("@every 1m", "0 3 * * *").
// Ошибки задачи пишутся в лог, расписание продолжает работать.
func (s *Scheduler) Every(spec, name string, job func(ctx context.Context) error) (cron.EntryID, error) {
	if spec == "" {
		return 0, fmt.Errorf("пустое расписание для задачи %q", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		ctx := logger.WithFields(context.Background(), "job", name)
		if err := job(ctx); err != nil {
			logger.Error(ctx, err, "Фоновая задача завершилась с ошибкой")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("расписание %q для задачи %q: %w", spec, name, err)
	}
	return id, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop дожидается завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
