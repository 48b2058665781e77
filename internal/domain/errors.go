package domain

import (
	"errors"
	"strings"
)

var (
	// ErrAuth — сессия или логин отвергнуты внешним клиентом.
	ErrAuth = errors.New("authentication rejected")
	// ErrTransient — сетевой сбой или временная ошибка платформы.
	ErrTransient = errors.New("transient external error")
	// ErrQuota — бэкенд ИИ ограничил частоту или исчерпал квоту.
	ErrQuota = errors.New("ai quota exceeded")
	// ErrPersist — не удалось сохранить состояние ни в одно хранилище.
	ErrPersist = errors.New("persist failed")
	// ErrConfig — не заданы обязательные параметры.
	ErrConfig = errors.New("invalid configuration")
)

// quotaMarkers встречаются в текстах ошибок о квоте у Gemini и OpenAI.
// Маркеры не должны совпадать с URL запроса (":generateContent").
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"rate-limit",
	"ratelimit",
	"rate_limit",
	"too many requests",
	"resource_exhausted",
	"resource exhausted",
	"429",
}

// IsQuotaMessage распознаёт превышение квоты по тексту ошибки.
func IsQuotaMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
