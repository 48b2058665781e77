package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"ig-comment-bot/internal/infra/metrics"
)

const callbackCheckSubscription = "check_subscription"

// botAPI — часть tgbotapi.BotAPI, нужная обработчику.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Handler выдаёт контент подписчикам канала.
type Handler struct {
	bot         botAPI
	log         zerolog.Logger
	channel     string
	contentLink string
}

// NewHandler создаёт обработчик бота-компаньона.
func NewHandler(bot botAPI, log zerolog.Logger, channel, contentLink string) *Handler {
	return &Handler{bot: bot, log: log, channel: strings.TrimSpace(channel), contentLink: contentLink}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !msg.IsCommand() || msg.Command() != "start" {
		return
	}
	if h.isSubscribed(msg.From.ID) {
		h.reply(msg.Chat.ID, h.contentText(), h.contentKeyboard())
		return
	}
	h.reply(msg.Chat.ID, h.subscribeText(), h.subscribeKeyboard())
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	answer := tgbotapi.NewCallback(cb.ID, "")
	if cb.Data == callbackCheckSubscription && cb.From != nil {
		if h.isSubscribed(cb.From.ID) {
			if cb.Message != nil {
				h.edit(cb.Message.Chat.ID, cb.Message.MessageID, h.contentText(), h.contentKeyboard())
			}
		} else {
			answer = tgbotapi.NewCallbackWithAlert(cb.ID, "❌ Siz hali kanalga obuna bo'lmagansiz!")
		}
	}
	start := time.Now()
	_, err := h.bot.Request(answer)
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", callbackTarget(cb), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

// isSubscribed проверяет членство в канале. Ошибка проверки означает «не подписан».
func (h *Handler) isSubscribed(userID int64) bool {
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID}}
	if id, err := strconv.ParseInt(h.channel, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = "@" + strings.TrimPrefix(h.channel, "@")
	}
	start := time.Now()
	member, err := h.bot.GetChatMember(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_member", h.channel, start, err)
	if err != nil {
		h.log.Warn().Err(err).Int64("user_id", userID).Msg("не удалось проверить подписку")
		return false
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true
	default:
		return false
	}
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	start := time.Now()
	_, err := h.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось отправить сообщение")
	}
}

func (h *Handler) edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	cfg.ReplyMarkup = keyboard
	start := time.Now()
	_, err := h.bot.Send(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", "edit_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось изменить сообщение")
	}
}

func (h *Handler) channelURL() string {
	return "https://t.me/" + strings.TrimPrefix(h.channel, "@")
}

func (h *Handler) subscribeText() string {
	return fmt.Sprintf("Salom! 👋\n\nMa'lumotlarni olish uchun avval kanalimizga obuna bo'ling:\n👉 %s\n\nObuna bo'lgandan keyin \"✅ Obuna bo'ldim\" tugmasini bosing.", h.channel)
}

func (h *Handler) subscribeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📢 Kanalga qo'shilish", h.channelURL())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Obuna bo'ldim", callbackCheckSubscription)),
	)
	return &kb
}

func (h *Handler) contentText() string {
	return fmt.Sprintf("✅ Rahmat, siz kanalimizga obuna bo'lgansiz!\n\n🎁 Mana sizning kontentingiz:\n👉 %s\n\nQo'shimcha savollar bo'lsa, yozing!", h.contentLink)
}

func (h *Handler) contentKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🎁 Kontentni olish", h.contentLink)),
	)
	return &kb
}

func callbackTarget(cb *tgbotapi.CallbackQuery) string {
	if cb.From == nil {
		return "unknown"
	}
	return strconv.FormatInt(cb.From.ID, 10)
}
