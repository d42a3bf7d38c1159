// Package http is the JSON API: auth endpoints, the per-user activity
// resources and a health probe, routed with chi.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/services"
)

// Services are the handlers' dependencies.
type Services struct {
	Auth    Authenticator
	Habits  Resource[services.HabitRequest, models.Habit]
	Dailies Resource[services.DailyRequest, models.Daily]
	Tasks   Resource[services.TaskRequest, models.Task]
}

// NewRouter builds the API router. Everything under /api except health and
// auth requires a bearer access token accepted by parser.
func NewRouter(s Services, parser TokenParser, allowedOrigins []string, log logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	ah := &authHandler{auth: s.Auth, log: log}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", ah.register)
			r.Post("/login", ah.login)
			r.Post("/refresh", ah.refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(parser))
			mountResource(r, "/habits", s.Habits, log)
			mountResource(r, "/dailies", s.Dailies, log)
			mountResource(r, "/tasks", s.Tasks, log)
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
