package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CommentsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_processed_total",
		Help: "Обработанные комментарии по веткам",
	}, []string{"path"})

	CommentReplies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comment_replies_total",
		Help: "Отправленные ответы и личные сообщения",
	}, []string{"kind", "status"})

	PollCycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poll_cycle_seconds",
		Help:    "Длительность цикла опроса",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})

	PollCycleErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poll_cycle_errors_total",
		Help: "Циклы опроса, завершившиеся ошибкой",
	})

	AIGenerate = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_generate_total",
		Help: "Итоги запросов генерации ответа",
	}, []string{"outcome"})

	AIThrottleWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ai_throttle_wait_seconds",
		Help:    "Ожидание из-за минимального интервала и бэкоффа",
		Buckets: []float64{0, 1, 5, 10, 30, 60, 90, 120, 150, 300, 600},
	})

	LedgerPersistErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_persist_errors_total",
		Help: "Ошибки сохранения обработанных комментариев",
	}, []string{"backend"})

	LedgerSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_processed_ids",
		Help: "Количество идентификаторов в памяти",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		CommentsProcessed,
		CommentReplies,
		PollCycleSeconds,
		PollCycleErrors,
		AIGenerate,
		AIThrottleWait,
		LedgerPersistErrors,
		LedgerSize,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveReply учитывает отправку ответа или личного сообщения.
func ObserveReply(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CommentReplies.WithLabelValues(kind, status).Inc()
}
