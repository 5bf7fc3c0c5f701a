package cli

import (
	"fmt"
	"time"

	"todo-calendar/internal/calendar"
	"todo-calendar/internal/console"
	"todo-calendar/internal/models"
	"todo-calendar/internal/toggler"
	"todo-calendar/internal/tui"

	"github.com/spf13/cobra"
)

func newEventsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Показать ленту календаря",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.session()
			if err != nil {
				return err
			}
			return app.board(cmd, c).Refresh(cmd.Context())
		},
	}
}

func newCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Отметить задачу выполненной",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.session()
			if err != nil {
				return err
			}
			toggler.New(c, app.board(cmd, c)).Activate(cmd.Context(), args[0])
			return nil
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	var form calendar.Form
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Создать задачу",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.session()
			if err != nil {
				return err
			}
			calendar.New(c, app.board(cmd, c)).CreateTask(cmd.Context(), form)
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.Title, "title", "t", "", "Название задачи")
	cmd.Flags().StringVarP(&form.Description, "desc", "d", "", "Описание")
	cmd.Flags().StringVar(&form.Type, "type", string(models.TaskSingle), "Тип задачи (single|multi)")
	return cmd
}

// parseWhen: дата без времени даёт событие на весь день.
func parseWhen(raw string) (time.Time, bool, error) {
	t, err := models.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, len(raw) == len(models.DateLayout), nil
}

// newMoveCmd собирает move и resize: обе команды отправляют новые границы
// события и откатывают его, если сервер отказал.
func newMoveCmd(app *App, use, short string) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startAt, allDay, err := parseWhen(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			ev := calendar.Event{ID: args[0], Start: startAt, AllDay: allDay}
			if end != "" {
				endAt, _, err := parseWhen(end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				ev.End = &endAt
			}

			c, err := app.session()
			if err != nil {
				return err
			}
			revert := func() {
				printf(cmd, "Изменение задачи #%s отменено\n", args[0])
			}
			ctl := calendar.New(c, app.board(cmd, c))
			if use == "resize" {
				ctl.EventResize(cmd.Context(), ev, revert)
			} else {
				ctl.EventDrop(cmd.Context(), ev, revert)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Новое начало (2006-01-02 или 2006-01-02T15:04:05)")
	cmd.Flags().StringVar(&end, "end", "", "Новый конец (по умолчанию равен началу)")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newDropCmd(app *App) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "drop <element-id>",
		Short: "Положить задачу из списка на день календаря",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := time.ParseInLocation(models.DateLayout, date, time.Local)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}

			c, err := app.session()
			if err != nil {
				return err
			}
			feed, err := c.FetchTasks(cmd.Context())
			if err != nil {
				return err
			}

			ctl := calendar.New(c, app.board(cmd, c))
			ctl.Init(console.Items(feed))
			ctl.Drop(cmd.Context(), args[0], day)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", time.Now().Format(models.DateLayout), "День (2006-01-02)")
	return cmd
}

func newAmbientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ambient",
		Short: "Фоновая анимация с частицами",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunAmbient()
		},
	}
}
