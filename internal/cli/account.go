package cli

import (
	"todo-calendar/internal/client"

	"github.com/spf13/cobra"
)

func newRegisterCmd(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Создать учётную запись",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(app.BaseURL)
			if err != nil {
				return err
			}
			if err := c.Register(cmd.Context(), args[0], password); err != nil {
				return err
			}
			printf(cmd, "Пользователь %s создан\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Пароль (не короче 8 символов)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Войти и сохранить сессию",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(app.BaseURL)
			if err != nil {
				return err
			}
			res, err := c.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if err := client.SaveState(app.StatePath, c.State()); err != nil {
				return err
			}
			printf(cmd, "Вход выполнен: %s (id %d)\n", res.Username, res.UserID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Пароль")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Завершить сессию",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.session()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := client.SaveState(app.StatePath, client.State{}); err != nil {
				return err
			}
			printf(cmd, "Сессия завершена\n")
			return nil
		},
	}
}

func newProfileCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Показать статистику задач",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.session()
			if err != nil {
				return err
			}
			stats, err := c.Profile(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "%s: всего %d, выполнено %d, осталось %d\n",
				stats.Username, stats.All, stats.Completed, stats.Incomplete)
			return nil
		},
	}
}
