package domain

import (
	"context"
	"time"
)

// SocialClient — контракт клиента автоматизации Instagram.
type SocialClient interface {
	// Login выполняет вход. Непустой session пытаются восстановить; при отказе возвращается ErrAuth.
	// Возвращает актуальный снимок сессии.
	Login(ctx context.Context, creds Credentials, session []byte) ([]byte, error)
	// SelfID возвращает идентификатор аккаунта после успешного входа.
	SelfID() string
	ListRecentPosts(ctx context.Context, limit int) ([]Post, error)
	// ListComments возвращает комментарии в порядке платформы.
	ListComments(ctx context.Context, post Post, limit int) ([]Comment, error)
	ReplyToComment(ctx context.Context, post Post, commentID, text string) error
	SendDirectMessage(ctx context.Context, userID, text string) error
	IsFollowing(ctx context.Context, userID string) (bool, error)
}

// TextBackend выполняет одиночный запрос генерации текста.
type TextBackend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProcessedStore хранит идентификаторы обработанных комментариев.
type ProcessedStore interface {
	LoadProcessed(ctx context.Context) ([]string, error)
	MarkProcessed(ctx context.Context, commentID string, at time.Time) error
}

// SessionStore хранит единственную текущую сессию клиента.
// Отсутствие сессии сигнализируется session.ErrNotFound из gotd.
type SessionStore interface {
	LoadSession(ctx context.Context) ([]byte, error)
	StoreSession(ctx context.Context, data []byte) error
	DiscardSession(ctx context.Context) error
}

// StatsRepo ведёт суточные счётчики.
type StatsRepo interface {
	IncrementStat(ctx context.Context, field StatField, amount int) error
	TodayStats(ctx context.Context) (DailyStats, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
