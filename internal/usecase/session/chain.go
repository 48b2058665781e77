package session

import (
	"context"
	"errors"
	"fmt"

	gotdsession "github.com/gotd/td/session"
	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
)

// Backend — именованное хранилище сессии в цепочке.
type Backend struct {
	Name  string
	Store domain.SessionStore
}

// Chain перебирает хранилища сессии по порядку.
type Chain struct {
	backends []Backend
	log      zerolog.Logger
}

var _ gotdsession.Storage = (*Chain)(nil)

// NewChain создаёт цепочку. Пустые хранилища пропускаются.
func NewChain(log zerolog.Logger, backends ...Backend) *Chain {
	var filtered []Backend
	for _, b := range backends {
		if b.Store != nil {
			filtered = append(filtered, b)
		}
	}
	return &Chain{backends: filtered, log: log}
}

// LoadSession возвращает первую найденную сессию или session.ErrNotFound.
func (c *Chain) LoadSession(ctx context.Context) ([]byte, error) {
	for _, b := range c.backends {
		data, err := b.Store.LoadSession(ctx)
		if errors.Is(err, gotdsession.ErrNotFound) {
			continue
		}
		if err != nil {
			c.log.Warn().Err(err).Str("backend", b.Name).Msg("не удалось прочитать сессию")
			continue
		}
		return data, nil
	}
	return nil, gotdsession.ErrNotFound
}

// StoreSession пишет сессию во все хранилища. Успех, если записалось хотя бы одно.
func (c *Chain) StoreSession(ctx context.Context, data []byte) error {
	var errs []error
	stored := false
	for _, b := range c.backends {
		if err := b.Store.StoreSession(ctx, data); err != nil {
			c.log.Warn().Err(err).Str("backend", b.Name).Msg("не удалось сохранить сессию")
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			continue
		}
		stored = true
	}
	if stored {
		return nil
	}
	if len(errs) == 0 {
		return fmt.Errorf("store session: %w: no backends configured", domain.ErrPersist)
	}
	return fmt.Errorf("store session: %w: %w", domain.ErrPersist, errors.Join(errs...))
}

// Restore предлагает accept сохранённые сессии по порядку хранилищ.
// Любой отказ, кроме временной ошибки и отмены контекста, удаляет сессию из её хранилища.
// Возвращает true, если какая-то сессия принята.
func (c *Chain) Restore(ctx context.Context, accept func([]byte) error) (bool, error) {
	var lastErr error
	for _, b := range c.backends {
		data, err := b.Store.LoadSession(ctx)
		if errors.Is(err, gotdsession.ErrNotFound) {
			continue
		}
		if err != nil {
			c.log.Warn().Err(err).Str("backend", b.Name).Msg("не удалось прочитать сессию")
			continue
		}
		err = accept(data)
		if err == nil {
			c.log.Info().Str("backend", b.Name).Msg("сессия восстановлена")
			return true, nil
		}
		if isRetryable(ctx, err) {
			return false, err
		}
		lastErr = err
		c.log.Warn().Err(err).Str("backend", b.Name).Msg("сохранённая сессия отклонена, удаляем")
		if derr := b.Store.DiscardSession(ctx); derr != nil {
			c.log.Warn().Err(derr).Str("backend", b.Name).Msg("не удалось удалить сессию")
		}
	}
	if lastErr != nil {
		c.log.Info().Msg("нет действующей сохранённой сессии")
	}
	return false, nil
}

// isRetryable отделяет сбои, после которых сессию стоит предложить ещё раз.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, domain.ErrTransient) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
