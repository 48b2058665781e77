package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
)

// Authenticator входит в аккаунт, используя сохранённую сессию, и сохраняет новую.
type Authenticator struct {
	client domain.SocialClient
	chain  *Chain
	creds  domain.Credentials
	log    zerolog.Logger
}

// NewAuthenticator создаёт аутентификатор.
func NewAuthenticator(client domain.SocialClient, chain *Chain, creds domain.Credentials, log zerolog.Logger) *Authenticator {
	return &Authenticator{client: client, chain: chain, creds: creds, log: log}
}

// Login пробует восстановить сессию, а при неудаче выполняет вход по паролю.
func (a *Authenticator) Login(ctx context.Context) error {
	var current []byte
	restored, err := a.chain.Restore(ctx, func(blob []byte) error {
		next, err := a.client.Login(ctx, a.creds, blob)
		if err != nil {
			return err
		}
		current = next
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !restored {
		return a.Reauthenticate(ctx)
	}
	a.save(ctx, current)
	a.log.Info().Str("self_id", a.client.SelfID()).Msg("вход выполнен по сохранённой сессии")
	return nil
}

// Reauthenticate выполняет вход по паролю и сохраняет новую сессию.
func (a *Authenticator) Reauthenticate(ctx context.Context) error {
	blob, err := a.client.Login(ctx, a.creds, nil)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	a.save(ctx, blob)
	a.log.Info().Str("self_id", a.client.SelfID()).Msg("вход выполнен по паролю")
	return nil
}

func (a *Authenticator) save(ctx context.Context, blob []byte) {
	if len(blob) == 0 {
		return
	}
	if err := a.chain.StoreSession(ctx, blob); err != nil {
		a.log.Warn().Err(err).Msg("сессия не сохранена")
	}
}
