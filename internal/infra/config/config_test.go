package config

import (
	"errors"
	"testing"

	"ig-comment-bot/internal/domain"
)

func TestParseContentMappingsKeepsOrder(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"CONTENT_LINK=https://a",
		"CONTENT_PLUS=https://p",
		"CONTENT_=https://ignored",
		"CONTENT_EMPTY=  ",
		"DEFAULT_CONTENT_LINK=https://d",
	}
	got := parseContentMappings(env)
	if len(got) != 2 {
		t.Fatalf("ожидали 2 маппинга, получили %d", len(got))
	}
	if got[0].Keyword != "link" || got[0].URL != "https://a" {
		t.Fatalf("неожиданный первый маппинг: %+v", got[0])
	}
	if got[1].Keyword != "plus" {
		t.Fatalf("ожидали plus вторым, получили %q", got[1].Keyword)
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	var cfg AppConfig
	cfg.AI.Provider = "gemini"
	cfg.Poll.MaxReplyLength = 2000
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}

	cfg.Instagram.Username = "shop"
	cfg.Instagram.Password = "secret"
	cfg.AI.GeminiKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestValidateOpenAIProvider(t *testing.T) {
	var cfg AppConfig
	cfg.Instagram.Username = "shop"
	cfg.Instagram.Password = "secret"
	cfg.AI.Provider = "openai"
	cfg.Poll.MaxReplyLength = 2000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without OPENAI_API_KEY")
	}
	cfg.AI.OpenAIKey = "sk"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}
