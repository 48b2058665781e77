package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/health"
)

// StatsSource отдаёт суточные счётчики.
type StatsSource interface {
	TodayStats(ctx context.Context) (domain.DailyStats, error)
}

// Options задаёт источники данных для служебных эндпоинтов.
type Options struct {
	Registry *health.Registry
	// Stats может быть nil, если БД не настроена.
	Stats StatsSource
	// ProcessedCount возвращает размер журнала обработанных комментариев.
	ProcessedCount func() int
}

// Server оборачивает chi.Router с базовыми middlewares.
type Server struct {
	Router chi.Router
	log    zerolog.Logger
	opts   Options
	srv    *http.Server
}

// NewServer создаёт HTTP сервер со служебными маршрутами.
func NewServer(logger zerolog.Logger, addr string, opts Options) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	s := &Server{Router: r, log: logger, opts: opts}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	r.Get("/", s.handleHome)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	return s
}

type healthResponse struct {
	Status       string `json:"status"`
	InstagramBot string `json:"instagram_bot"`
	TelegramBot  string `json:"telegram_bot"`
	StartedAt    string `json:"started_at"`
	ProcessedIDs int    `json:"processed_ids"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.Registry.Snapshot()
	resp := healthResponse{
		Status:       "ok",
		InstagramBot: snap["instagram"],
		TelegramBot:  snap["telegram"],
		StartedAt:    s.opts.Registry.StartedAt().Format(time.RFC3339),
	}
	if s.opts.ProcessedCount != nil {
		resp.ProcessedIDs = s.opts.ProcessedCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.Stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "statistics storage is disabled"})
		return
	}
	stats, err := s.opts.Stats.TodayStats(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("http: не удалось получить статистику")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "statistics unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	snap := s.opts.Registry.Snapshot()
	fmt.Fprint(w, `<html><head><title>Instagram + Telegram Bot</title></head><body style="font-family: Arial; text-align: center; padding: 50px;">`)
	fmt.Fprint(w, `<h1>Instagram + Telegram Bot</h1><ul style="list-style: none;">`)
	for _, name := range s.opts.Registry.Subsystems() {
		fmt.Fprintf(w, "<li>%s: %s</li>", html.EscapeString(name), html.EscapeString(snap[name]))
	}
	fmt.Fprint(w, `</ul><p><a href="/health">Health Check</a></p></body></html>`)
}

// Start запускает http.Server и блокируется до его остановки.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP сервер запущен")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown позволяет корректно завершить работу.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
