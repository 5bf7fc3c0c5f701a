package server

import (
	"net/http"
	"time"

	"todo-calendar/internal/auth"
	"todo-calendar/internal/logger"
	"todo-calendar/internal/manager"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(tm *manager.TaskManager, um *manager.UserManager, sessions *auth.Store) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", registerHandler(um))
	r.Post("/login", loginHandler(um, sessions))

	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireUser)

		r.Post("/logout", logoutHandler(sessions))
		r.Post("/complete/{id}", completeHandler(tm))
		r.Get("/fetch_tasks", fetchTasksHandler(tm))
		r.Post("/add_task", addTaskHandler(tm))
		r.Post("/update_task_position", updateTaskPositionHandler(tm))
		r.Get("/profile", profileHandler(tm, um))
		r.Post("/change_password", changePasswordHandler(um))
		r.Post("/delete_account", deleteAccountHandler(um, sessions))
	})

	return r
}

// requestLogger пишет одну строку на запрос через общий логгер.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		ctx := logger.WithFields(r.Context(), "request_id", middleware.GetReqID(r.Context()))

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info(ctx, "HTTP запрос",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}
