package instagram

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
)

const followKeyPrefix = "follow:"

// FollowCache запоминает положительные ответы IsFollowing.
// Отрицательные ответы не кэшируются: пользователь может подписаться в любой момент.
type FollowCache struct {
	domain.SocialClient
	cache domain.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewFollowCache оборачивает клиента кэшем подписок.
func NewFollowCache(client domain.SocialClient, cache domain.Cache, ttl time.Duration, log zerolog.Logger) *FollowCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FollowCache{SocialClient: client, cache: cache, ttl: ttl, log: log}
}

// IsFollowing сначала смотрит в кэш, затем спрашивает клиента.
func (f *FollowCache) IsFollowing(ctx context.Context, userID string) (bool, error) {
	key := followKeyPrefix + userID
	if data, err := f.cache.Get(ctx, key); err == nil && string(data) == "1" {
		return true, nil
	}
	following, err := f.SocialClient.IsFollowing(ctx, userID)
	if err != nil {
		return following, err
	}
	if following {
		if err := f.cache.Set(ctx, key, []byte("1"), f.ttl); err != nil {
			f.log.Warn().Err(err).Str("user_id", userID).Msg("не удалось сохранить подписку в кэш")
		}
	}
	return following, nil
}
