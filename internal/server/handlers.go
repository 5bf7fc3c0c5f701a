package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"todo-calendar/internal/auth"
	"todo-calendar/internal/logger"
	"todo-calendar/internal/manager"
	"todo-calendar/internal/models"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// writeError переводит ошибки менеджеров в HTTP-статусы.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(r.Context(), err, "Ошибка обработки запроса", "path", r.URL.Path)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func currentSession(r *http.Request) auth.Session {
	sess, _ := auth.FromContext(r.Context())
	return sess
}

func parseTaskID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: некорректный ID задачи %q", models.ErrValidation, raw)
	}
	return id, nil
}

func registerHandler(um *manager.UserManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := um.Register(r.Context(), r.FormValue("username"), r.FormValue("password"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func loginHandler(um *manager.UserManager, sessions *auth.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := um.Authenticate(r.Context(), r.FormValue("username"), r.FormValue("password"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		sess := sessions.Create(user.ID)
		auth.SetCookie(w, sess)
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":    user.ID,
			"username":   user.Username,
			"csrf_token": sess.CSRFToken,
		})
	}
}

func logoutHandler(sessions *auth.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Delete(currentSession(r).Token)
		auth.ClearCookie(w)
		writeMessage(w, "Logged out.")
	}
}

func completeHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTaskID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		task, err := tm.Complete(r.Context(), currentSession(r).UserID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func fetchTasksHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := tm.Events(r.Context(), currentSession(r).UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func addTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(r)
		if !auth.CheckCSRF(r, sess) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "CSRF token missing or invalid"})
			return
		}

		req := models.CreateTaskRequest{
			Title:       r.FormValue("title"),
			Description: r.FormValue("desc"),
			Type:        r.FormValue("taskType"),
		}

		task, err := tm.AddTask(r.Context(), sess.UserID, req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, models.CreatedTask{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Type:        task.Type,
		})
	}
}

func updateTaskPositionHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTaskID(r.FormValue("taskId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		start, err := models.ParseTimestamp(r.FormValue("startDate"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		end, err := models.ParseTimestamp(r.FormValue("endDate"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		if err := tm.UpdatePosition(r.Context(), currentSession(r).UserID, id, start, end); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, "Task position and dates updated successfully.")
	}
}

func profileHandler(tm *manager.TaskManager, um *manager.UserManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := um.GetUserByID(r.Context(), currentSession(r).UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		stats, err := tm.Stats(r.Context(), user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func changePasswordHandler(um *manager.UserManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := um.ChangePassword(r.Context(), currentSession(r).UserID,
			r.FormValue("current_password"),
			r.FormValue("new_password"),
			r.FormValue("confirm_new_password"),
		)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, "Your password has been updated successfully")
	}
}

func deleteAccountHandler(um *manager.UserManager, sessions *auth.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(r)
		if err := um.DeleteAccount(r.Context(), sess.UserID, r.FormValue("password")); err != nil {
			writeError(w, r, err)
			return
		}
		sessions.DeleteUser(sess.UserID)
		auth.ClearCookie(w)
		writeMessage(w, "Your account has been successfully deleted.")
	}
}
