package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/metrics"
)

const (
	// FallbackReply отправляется, когда ответ получить не удалось.
	FallbackReply = "Rahmat! Savolingiz qabul qilindi. Tez orada javob beramiz! 🙏"
	// EmptyReply отправляется, когда модель вернула пустой текст.
	EmptyReply = "Rahmat! Savolingizga tez orada javob beramiz."
	// CommentHint — контекст для ответов на комментарии.
	CommentHint = "Instagram postidagi kommentariya. Qisqa javob bering."
)

// Options задаёт параметры ограничителя.
type Options struct {
	SystemPrompt string
	MinInterval  time.Duration
	MaxAttempts  int
	BackoffUnit  time.Duration
	// Timeout ограничивает одну попытку.
	Timeout time.Duration
}

// Throttled выдерживает минимальный интервал между запросами и повторяет их при превышении квоты.
type Throttled struct {
	backend domain.TextBackend
	opts    Options
	log     zerolog.Logger

	now   func() time.Time
	sleep func(time.Duration)

	mu       sync.Mutex
	lastCall time.Time
}

// NewThrottled создаёт клиента с ограничением частоты.
func NewThrottled(backend domain.TextBackend, opts Options, log zerolog.Logger) *Throttled {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = 30 * time.Second
	}
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	}
	return &Throttled{
		backend: backend,
		opts:    opts,
		log:     log,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Generate возвращает ответ модели, текст для пустого ответа или запасной текст. Ошибок не возвращает.
func (t *Throttled) Generate(ctx context.Context, message, hint string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastCall.IsZero() {
		if wait := t.opts.MinInterval - t.now().Sub(t.lastCall); wait > 0 {
			t.log.Debug().Dur("wait", wait).Msg("ожидание минимального интервала")
			metrics.AIThrottleWait.Observe(wait.Seconds())
			t.sleep(wait)
		}
	}

	prompt := BuildPrompt(t.opts.SystemPrompt, message, hint)
	callCtx := context.WithoutCancel(ctx)

	for attempt := 1; attempt <= t.opts.MaxAttempts; attempt++ {
		t.lastCall = t.now()
		text, err := t.complete(callCtx, prompt)
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				metrics.AIGenerate.WithLabelValues("empty").Inc()
				return EmptyReply
			}
			metrics.AIGenerate.WithLabelValues("success").Inc()
			return text
		}
		if !IsQuotaError(err) {
			t.log.Error().Err(err).Int("attempt", attempt).Msg("ошибка генерации ответа")
			metrics.AIGenerate.WithLabelValues("error").Inc()
			return FallbackReply
		}
		delay := time.Duration(attempt) * t.opts.BackoffUnit
		t.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("превышена квота, повтор")
		metrics.AIThrottleWait.Observe(delay.Seconds())
		t.sleep(delay)
	}
	metrics.AIGenerate.WithLabelValues("exhausted").Inc()
	return FallbackReply
}

func (t *Throttled) complete(ctx context.Context, prompt string) (string, error) {
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}
	return t.backend.Complete(ctx, prompt)
}

// IsQuotaError распознаёт превышение квоты или лимита частоты.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrQuota) {
		return true
	}
	return domain.IsQuotaMessage(err)
}

// BuildPrompt собирает промпт из системной инструкции, контекста и сообщения.
func BuildPrompt(system, message, hint string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(system))
	b.WriteString("\n\n")
	if hint != "" {
		fmt.Fprintf(&b, "Kontekst: %s\n\n", hint)
	}
	fmt.Fprintf(&b, "Foydalanuvchi: %s\n\n", message)
	b.WriteString("Javob (qisqa va do'stona):")
	return b.String()
}
