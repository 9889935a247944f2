package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"telegram_consult_bot/internal/bot"
	"telegram_consult_bot/internal/config"
	"telegram_consult_bot/internal/middleware"
	"telegram_consult_bot/internal/storage"
	"telegram_consult_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server принимает webhook от Telegram и отдает health/metrics
type Server struct {
	httpServer    *http.Server
	config        *config.Config
	logger        *logger.Logger
	rateLimiter   *middleware.RateLimiter
	healthChecker *HealthChecker
	dispatcher    *bot.Dispatcher
	telegramBot   *tgbot.Bot
}

// New создает HTTP сервер
func New(cfg *config.Config, log *logger.Logger, dispatcher *bot.Dispatcher, telegramBot *tgbot.Bot, store storage.Storage) *Server {
	s := &Server{
		config:        cfg,
		logger:        log,
		rateLimiter:   middleware.NewRateLimiter(100, time.Minute, log),
		healthChecker: NewHealthChecker(store),
		dispatcher:    dispatcher,
		telegramBot:   telegramBot,
	}

	s.httpServer = &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        s.setupRoutes(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return s
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthChecker.HealthHandler)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.Handle("/metrics", promhttp.Handler())

	// middleware применяются в обратном порядке
	h := http.Handler(mux)
	h = middleware.Prometheus(h)
	h = middleware.HTTPRateLimit(s.rateLimiter)(h)

	return h
}

// handleWebhook принимает обновление от Telegram и передает диспетчеру
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update tgmodels.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Error("failed to decode telegram update", logger.Error(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	s.dispatcher.HandleUpdate(ctx, s.telegramBot, &update)

	w.WriteHeader(http.StatusOK)
}

// Start запускает сервер и блокируется до отмены контекста
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", logger.String("addr", s.httpServer.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", logger.Error(err))
		return err
	}

	return nil
}
