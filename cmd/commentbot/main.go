package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"ig-comment-bot/internal/adapters/bot"
	"ig-comment-bot/internal/adapters/filestore"
	"ig-comment-bot/internal/adapters/instagram"
	"ig-comment-bot/internal/adapters/llm"
	"ig-comment-bot/internal/adapters/repo"
	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/cache"
	"ig-comment-bot/internal/infra/config"
	"ig-comment-bot/internal/infra/db"
	"ig-comment-bot/internal/infra/health"
	httpserver "ig-comment-bot/internal/infra/http"
	"ig-comment-bot/internal/infra/log"
	"ig-comment-bot/internal/infra/metrics"
	openai "ig-comment-bot/internal/infra/openai"
	"ig-comment-bot/internal/infra/queue"
	"ig-comment-bot/internal/usecase/assistant"
	"ig-comment-bot/internal/usecase/comments"
	"ig-comment-bot/internal/usecase/keywords"
	"ig-comment-bot/internal/usecase/ledger"
	"ig-comment-bot/internal/usecase/session"
)

const (
	subsystemInstagram = "instagram"
	subsystemTelegram  = "telegram"
)

func main() {
	cfg, err := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить конфигурацию")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("некорректная конфигурация")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	registry := health.NewRegistry(time.Now(), subsystemInstagram, subsystemTelegram)

	var (
		primaryLedger  domain.ProcessedStore
		primarySession domain.SessionStore
		stats          domain.StatsRepo
		statsSource    httpserver.StatsSource
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error().Err(err).Msg("БД недоступна, работаем только с файлами")
		} else {
			defer pool.Close()
			pg := repo.NewPostgres(pool)
			if err := pg.Migrate(ctx); err != nil {
				logger.Error().Err(err).Msg("не удалось применить схему, работаем только с файлами")
			} else {
				primaryLedger, primarySession, stats, statsSource = pg, pg, pg, pg
				logger.Info().Msg("Postgres подключён")
			}
		}
	} else {
		logger.Info().Msg("DATABASE_URL не задан, локальный режим")
	}

	if seeded, err := filestore.SeedSession(cfg.Instagram.SessionFile, cfg.Instagram.SessionData); err != nil {
		logger.Warn().Err(err).Msg("не удалось записать сессию из SESSION_DATA")
	} else if seeded {
		logger.Info().Str("path", cfg.Instagram.SessionFile).Msg("сессия восстановлена из SESSION_DATA")
	}

	processed := ledger.New(primaryLedger, filestore.NewLedger(cfg.Instagram.ProcessedFile), log.Component(logger, "ledger"))
	if n, err := processed.LoadAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("журнал обработанных комментариев пуст")
	} else {
		logger.Info().Int("count", n).Msg("журнал обработанных комментариев загружен")
	}

	var social domain.SocialClient = instagram.NewClient(cfg.Instagram.GatewayURL, 30*time.Second)
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis недоступен, кэш подписок отключён")
		} else {
			defer client.Close()
			social = instagram.NewFollowCache(social, cache.NewRedis(client, "igbot:"), cfg.FollowCacheTTL, log.Component(logger, "follow_cache"))
		}
	}

	var activity domain.ActivitySink
	if cfg.RabbitURL != "" {
		publisher, err := queue.NewActivityPublisher(cfg.RabbitURL, cfg.ActivityQueue)
		if err != nil {
			logger.Warn().Err(err).Msg("RabbitMQ недоступен, события не публикуются")
		} else {
			defer publisher.Close()
			activity = publisher
		}
	}

	backend, err := newTextBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать AI клиента")
	}
	ai := assistant.NewThrottled(backend, assistant.Options{
		SystemPrompt: cfg.AI.SystemPrompt,
		MinInterval:  cfg.AI.MinInterval,
		MaxAttempts:  cfg.AI.MaxAttempts,
		BackoffUnit:  cfg.AI.BackoffUnit,
		Timeout:      cfg.AI.Timeout,
	}, log.Component(logger, "assistant"))

	mappings := config.ContentMappings()
	resolver := keywords.New(mappings, cfg.Templates.DefaultContent)
	logger.Info().Strs("keywords", resolver.Keywords()).Msg("ключевые слова загружены")

	chain := session.NewChain(log.Component(logger, "session"),
		session.Backend{Name: "postgres", Store: primarySession},
		session.Backend{Name: "file", Store: filestore.NewSession(cfg.Instagram.SessionFile)},
	)
	auth := session.NewAuthenticator(social, chain, domain.Credentials{
		Username: cfg.Instagram.Username,
		Password: cfg.Instagram.Password,
	}, log.Component(logger, "auth"))

	processor := comments.NewProcessor(comments.Deps{
		Client:    social,
		Ledger:    processed,
		Keywords:  resolver,
		Assistant: ai,
		Auth:      auth,
		Stats:     stats,
		Activity:  activity,
		Status:    registry.Reporter(subsystemInstagram),
	}, comments.Options{
		PostLimit:      cfg.Poll.PostLimit,
		CommentLimit:   cfg.Poll.CommentLimit,
		MaxReplyLength: cfg.Poll.MaxReplyLength,
		PollInterval:   cfg.Poll.Interval,
		ErrorDelay:     cfg.Poll.ErrorDelay,
		DMDelay:        cfg.Poll.DMDelay,
		AIHint:         assistant.CommentHint,
		Templates: comments.Templates{
			KeywordReply:     cfg.Templates.KeywordReply,
			FollowFirstReply: cfg.Templates.FollowFirstReply,
			DMMessage:        cfg.Templates.DMMessage,
		},
	}, log.Component(logger, "comments"))

	srv := httpserver.NewServer(log.Component(logger, "http"), fmt.Sprintf(":%d", cfg.Port), httpserver.Options{
		Registry:       registry,
		Stats:          statsSource,
		ProcessedCount: processed.Len,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Error().Err(err).Msg("не удалось создать Telegram бота")
			registry.SetError(subsystemTelegram, err)
		} else {
			handler := bot.NewHandler(api, log.Component(logger, "telegram"), cfg.Telegram.Channel, cfg.Telegram.ContentLink)
			registry.Set(subsystemTelegram, health.StatusRunning)
			wg.Add(1)
			go func() {
				defer wg.Done()
				bot.Poll(ctx, api, handler, log.Component(logger, "telegram"))
				registry.Set(subsystemTelegram, health.StatusStopped)
			}()
		}
	} else {
		registry.Set(subsystemTelegram, health.StatusDisabled)
	}

	processor.Run(ctx)

	logger.Info().Msg("остановка сервиса")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("не удалось корректно остановить HTTP сервер")
	}
	wg.Wait()
}

func newTextBackend(ctx context.Context, cfg config.AppConfig) (domain.TextBackend, error) {
	switch cfg.AI.Provider {
	case "openai":
		client := openai.NewClient(cfg.AI.OpenAIKey, cfg.AI.OpenAIURL, cfg.AI.Timeout)
		return llm.NewOpenAI(client, cfg.AI.OpenAIModel), nil
	default:
		return llm.NewGemini(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel)
	}
}
