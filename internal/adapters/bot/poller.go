package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Poll читает апдейты long polling'ом и передаёт их обработчику до отмены контекста.
func Poll(ctx context.Context, api *tgbotapi.BotAPI, h *Handler, log zerolog.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)
	log.Info().Str("bot", api.Self.UserName).Msg("Telegram бот запущен")
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			log.Info().Msg("Telegram бот остановлен")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}
