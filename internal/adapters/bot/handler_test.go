package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type fakeAPI struct {
	status    string
	memberErr error
	member    tgbotapi.GetChatMemberConfig
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.member = config
	if f.memberErr != nil {
		return tgbotapi.ChatMember{}, f.memberErr
	}
	return tgbotapi.ChatMember{Status: f.status}, nil
}

func startUpdate() tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/start",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		Chat:     &tgbotapi.Chat{ID: 10},
		From:     &tgbotapi.User{ID: 5},
	}}
}

func TestStartSubscribedSendsContent(t *testing.T) {
	api := &fakeAPI{status: "member"}
	h := NewHandler(api, zerolog.Nop(), "@mychannel", "https://content")
	h.HandleUpdate(context.Background(), startUpdate())

	if api.member.SuperGroupUsername != "@mychannel" || api.member.UserID != 5 {
		t.Fatalf("неожиданный запрос членства %+v", api.member)
	}
	if len(api.sent) != 1 {
		t.Fatalf("ожидали одно сообщение, получили %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok || !strings.Contains(msg.Text, "https://content") {
		t.Fatalf("ожидали сообщение с контентом, получили %+v", api.sent[0])
	}
}

func TestStartNotSubscribedAsksToJoin(t *testing.T) {
	api := &fakeAPI{status: "left"}
	h := NewHandler(api, zerolog.Nop(), "@mychannel", "https://content")
	h.HandleUpdate(context.Background(), startUpdate())

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("ожидали MessageConfig, получили %T", api.sent[0])
	}
	kb, ok := msg.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 2 {
		t.Fatalf("ожидали две строки кнопок, получили %+v", msg.ReplyMarkup)
	}
	join := kb.InlineKeyboard[0][0]
	if join.URL == nil || *join.URL != "https://t.me/mychannel" {
		t.Fatalf("неожиданная ссылка на канал %+v", join)
	}
	check := kb.InlineKeyboard[1][0]
	if check.CallbackData == nil || *check.CallbackData != callbackCheckSubscription {
		t.Fatalf("неожиданная кнопка проверки %+v", check)
	}
}

func TestCallbackNotSubscribedShowsAlert(t *testing.T) {
	api := &fakeAPI{memberErr: errors.New("chat not found")}
	h := NewHandler(api, zerolog.Nop(), "@mychannel", "https://content")
	h.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    callbackCheckSubscription,
		From:    &tgbotapi.User{ID: 5},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 10}},
	}})

	if len(api.sent) != 0 {
		t.Fatalf("сообщение не должно меняться: %+v", api.sent)
	}
	if len(api.requests) != 1 {
		t.Fatalf("ожидали один ответ на callback, получили %d", len(api.requests))
	}
	answer, ok := api.requests[0].(tgbotapi.CallbackConfig)
	if !ok || !answer.ShowAlert || !strings.Contains(answer.Text, "obuna bo'lmagansiz") {
		t.Fatalf("ожидали alert, получили %+v", api.requests[0])
	}
}

func TestCallbackSubscribedEditsMessage(t *testing.T) {
	api := &fakeAPI{status: "creator"}
	h := NewHandler(api, zerolog.Nop(), "-100123", "https://content")
	h.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    callbackCheckSubscription,
		From:    &tgbotapi.User{ID: 5},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 10}},
	}})

	if api.member.ChatID != -100123 {
		t.Fatalf("числовой канал должен идти в ChatID, получили %+v", api.member)
	}
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok || edit.MessageID != 3 || !strings.Contains(edit.Text, "https://content") {
		t.Fatalf("ожидали редактирование сообщения, получили %+v", api.sent[0])
	}
	answer := api.requests[0].(tgbotapi.CallbackConfig)
	if answer.ShowAlert {
		t.Fatal("подписчику alert не показывается")
	}
}
