// Package cli - дерево команд CLI: переключатель выполнения и контроллер
// календаря работают с запущенным сервером задач.
package cli

import (
	"context"
	"fmt"
	"strings"

	"todo-calendar/internal/client"
	"todo-calendar/internal/config"
	"todo-calendar/internal/console"
	"todo-calendar/internal/logger"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	BaseURL    string
	StatePath  string
	Verbose    bool

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Задачи и календарь из терминала",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  todo register alice --password secret123
  todo login alice --password secret123
  todo add --title "Купить молоко" --type multi
  todo events
  todo drop task-3 --date 2024-03-01
  todo move 3 --start 2024-03-02 --end 2024-03-04
  todo complete 3
  todo ambient
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(app.ConfigPath)
		if err != nil {
			return err
		}
		if app.BaseURL == "" {
			app.BaseURL = cfg.Client.BaseURL
		}
		if app.StatePath == "" {
			app.StatePath = cfg.Client.StatePath
		}
		level := logger.ParseLevel(cfg.LogLevel)
		if app.Verbose {
			level = logger.LevelDebug
		}
		logger.SetLevel(level)
		app.cfg = cfg
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", config.DefaultPath(), "Путь к файлу конфигурации")
	cmd.PersistentFlags().StringVar(&app.BaseURL, "server", "", "Адрес сервера (по умолчанию из конфигурации)")
	cmd.PersistentFlags().StringVar(&app.StatePath, "state", "", "Файл сохранённой сессии")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Подробный лог")

	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newProfileCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newCompleteCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newMoveCmd(app, "move", "Перенести задачу на календаре"))
	cmd.AddCommand(newMoveCmd(app, "resize", "Изменить длительность задачи"))
	cmd.AddCommand(newDropCmd(app))
	cmd.AddCommand(newAmbientCmd())

	return cmd
}

// session открывает клиента с сохранённой сессией.
func (app *App) session() (*client.Client, error) {
	st, err := client.LoadState(app.StatePath)
	if err != nil {
		return nil, err
	}
	baseURL := app.BaseURL
	if st.BaseURL != "" && st.BaseURL != strings.TrimRight(baseURL, "/") {
		logger.Debug(context.Background(), "Сессия сохранена для другого сервера", "saved", st.BaseURL, "server", baseURL)
		st = client.State{}
	}

	c, err := client.New(baseURL)
	if err != nil {
		return nil, err
	}
	c.Restore(st)
	return c, nil
}

func (app *App) board(cmd *cobra.Command, c *client.Client) *console.Board {
	return console.NewBoard(c, cmd.OutOrStdout())
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
