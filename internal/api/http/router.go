// Package http exposes estimation sessions over a JSON API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/gradevision/internal/audit"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/intake"
	"github.com/mind-engage/gradevision/internal/session"
)

type Deps struct {
	Sessions  *session.Manager
	Validator *intake.Validator
	Engine    *grading.Engine // nil: clients answer every question themselves
	Audit     *audit.Repo     // nil: no audit log
	Logger    *slog.Logger

	CORSOrigins []string
	LogRequests bool
	Ready       func() error

	// Timeout bounds every request except /assess, which runs whole
	// descents against the server's oracle and is bounded by AssessTimeout.
	// A run cut short keeps none of its results.
	Timeout       time.Duration
	AssessTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Validator == nil {
		d.Validator = intake.NewValidator()
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	if d.AssessTimeout <= 0 {
		d.AssessTimeout = 10 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if d.LogRequests {
		r.Use(requestLogger(d.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	m := d.Sessions
	timeout := middleware.Timeout(d.Timeout)
	r.Route("/sessions", func(sr chi.Router) {
		sr.With(timeout).Post("/", CreateSessionHandler(m))
		sr.Route("/{id}", func(s chi.Router) {
			if d.Engine != nil {
				s.With(middleware.Timeout(d.AssessTimeout)).Post("/assess", AssessHandler(m, d.Validator, d.Engine))
			}
			s = s.With(timeout)
			s.Get("/", GetSessionHandler(m))
			s.Delete("/", DeleteSessionHandler(m))
			s.Post("/reset", ResetSessionHandler(m))
			s.Put("/previous", SetPreviousHandler(m))

			s.Post("/subjects", BeginSubjectHandler(m, d.Validator))
			s.Post("/answer", AnswerHandler(m))
			s.Delete("/pending", AbandonHandler(m))

			s.Patch("/results/{index}", EditGradeHandler(m))
			s.Delete("/results/{index}", RemoveResultHandler(m))
			s.Get("/share", ShareHandler(m))
			s.Get("/export.xlsx", ExportXLSXHandler(m))
			if d.Audit != nil {
				s.Get("/events", ListEventsHandler(m, d.Audit))
			}
		})
	})
	r.With(timeout).Get("/results", SharedResultsHandler())
	r.With(timeout).Get("/ladder", LadderHandler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				d.Logger.Warn("not ready", "err", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("took", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
