// Package client говорит с сервером задач так же, как страница в браузере:
// POST-формы с cookie сессии, ответы в JSON.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"todo-calendar/internal/auth"
	"todo-calendar/internal/models"
)

// ErrRejected - любой ответ со статусом не 2xx.
var ErrRejected = errors.New("запрос отклонён сервером")

// StatusError - сервер ответил, но не 2xx.
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRejected
}

type Client struct {
	base *url.URL
	http *http.Client

	mu   sync.Mutex
	csrf string
}

type Option func(*Client)

// WithHTTPClient подменяет транспорт; cookie jar подключается, если его нет.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("адрес сервера %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("адрес сервера %q: нужен полный URL", baseURL)
	}

	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// do выполняет запрос и декодирует JSON-ответ в out (если out не nil).
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: разбор ответа: %w", method, path, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	return c.do(ctx, http.MethodPost, "/register", form, nil)
}

type LoginResult struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	CSRFToken string `json:"csrf_token"`
}

// Login открывает сессию и запоминает CSRF-токен для /add_task.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var res LoginResult
	form := url.Values{"username": {username}, "password": {password}}
	if err := c.do(ctx, http.MethodPost, "/login", form, &res); err != nil {
		return LoginResult{}, err
	}

	c.mu.Lock()
	c.csrf = res.CSRFToken
	c.mu.Unlock()
	return res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", url.Values{}, nil)
}

// Complete: POST /complete/{id}
func (c *Client) Complete(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, "/complete/"+url.PathEscape(taskID), url.Values{}, nil)
}

type NewTask struct {
	Title       string
	Description string
	Type        string
}

// AddTask: POST /add_task, возвращает присвоенный сервером идентификатор.
func (c *Client) AddTask(ctx context.Context, task NewTask) (models.CreatedTask, error) {
	c.mu.Lock()
	csrf := c.csrf
	c.mu.Unlock()

	form := url.Values{
		"title":        {task.Title},
		"desc":         {task.Description},
		"taskType":     {task.Type},
		auth.CSRFField: {csrf},
	}

	var created models.CreatedTask
	if err := c.do(ctx, http.MethodPost, "/add_task", form, &created); err != nil {
		return models.CreatedTask{}, err
	}
	return created, nil
}

// UpdateTaskPosition: POST /update_task_position; даты уходят как есть.
func (c *Client) UpdateTaskPosition(ctx context.Context, taskID, startDate, endDate string) error {
	form := url.Values{
		"taskId":    {taskID},
		"startDate": {startDate},
		"endDate":   {endDate},
	}
	return c.do(ctx, http.MethodPost, "/update_task_position", form, nil)
}

func (c *Client) FetchTasks(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, http.MethodGet, "/fetch_tasks", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) Profile(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := c.do(ctx, http.MethodGet, "/profile", nil, &stats)
	return stats, err
}
