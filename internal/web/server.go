package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured
func NewRouter(app *App) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-CSRF-Token"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", app.Health)

	if app.opts.Timesheet != nil {
		r.Route("/hours", func(r chi.Router) {
			r.Get("/", app.HoursToday)
			r.Get("/{year}/{month}", app.HoursMonth)
			r.Get("/day/{date}", app.HoursDay)
		})
	}

	r.Group(func(r chi.Router) {
		if len(app.opts.CSRFKey) > 0 {
			r.Use(csrf.Protect(app.opts.CSRFKey,
				csrf.Secure(app.opts.SecureCookies),
				csrf.Path("/"),
				csrf.ErrorHandler(http.HandlerFunc(csrfFailure))))
		}

		r.Get("/", app.NewCalendar)
		r.Post("/calendars", app.CreateCalendar)

		r.Route("/calendars/{id}", func(r chi.Router) {
			r.Use(app.withSession)

			r.Get("/", app.ShowCalendar)
			r.Delete("/", app.CloseCalendar)

			r.Post("/toggle", app.Toggle)
			r.Post("/add", app.Add)
			r.Post("/remove", app.Remove)
			r.Post("/clear", app.Clear)
			r.Post("/weekdays", app.Weekdays)
			r.Post("/prev", app.Prev)
			r.Post("/next", app.Next)
			r.Post("/today", app.Today)
			r.Post("/month", app.Month)

			r.Get("/dates", app.GetDates)
			r.Put("/dates", app.SetDates)
		})
	})

	return r
}

// requestLogger is middleware.Logger writing through zap
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("HTTP request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusForbidden, "CSRF token invalid", csrf.FailureReason(r))
}
