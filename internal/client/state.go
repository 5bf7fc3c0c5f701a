package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"todo-calendar/internal/auth"
)

// State - то, что CLI сохраняет между запусками.
type State struct {
	BaseURL   string `json:"base_url"`
	Session   string `json:"session"`
	CSRFToken string `json:"csrf_token"`
}

func (c *Client) State() State {
	st := State{BaseURL: c.base.String()}
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == auth.CookieName {
			st.Session = cookie.Value
		}
	}
	c.mu.Lock()
	st.CSRFToken = c.csrf
	c.mu.Unlock()
	return st
}

// Restore возвращает в клиент сохранённую сессию.
func (c *Client) Restore(st State) {
	if st.Session != "" {
		c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: auth.CookieName, Value: st.Session, Path: "/"}})
	}
	c.mu.Lock()
	c.csrf = st.CSRFToken
	c.mu.Unlock()
}

func LoadState(path string) (State, error) {
	var st State
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("чтение сессии: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("разбор сессии %s: %w", path, err)
	}
	return st, nil
}

func SaveState(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
