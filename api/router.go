package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts the page, the form actions, the JSON API and the
// gallery assets.
func NewRouter(h *Handler, imagesDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/", h.Index)
	r.Post("/fields", h.SetFields)
	r.Post("/submit", h.Submit)
	r.Route("/picker", func(r chi.Router) {
		r.Post("/open", h.OpenPicker)
		r.Post("/select", h.SelectImage)
		r.Post("/confirm", h.ConfirmPicker)
		r.Post("/cancel", h.CancelPicker)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.State)
		r.Get("/ws", h.Stream)
		r.Get("/history", h.History)
	})

	r.Get("/health", h.Health)

	images := http.StripPrefix("/images/", http.FileServer(http.Dir(imagesDir)))
	r.Handle("/images/*", images)

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
