package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"ig-comment-bot/internal/domain"
)

const contentPrefix = "CONTENT_"

// AppConfig описывает конфигурацию сервиса.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"10000"`

	Instagram struct {
		Username      string `envconfig:"INSTAGRAM_USERNAME"`
		Password      string `envconfig:"INSTAGRAM_PASSWORD"`
		GatewayURL    string `envconfig:"IG_GATEWAY_URL" default:"http://127.0.0.1:8000"`
		SessionFile   string `envconfig:"SESSION_FILE" default:"session.json"`
		SessionData   string `envconfig:"SESSION_DATA"`
		ProcessedFile string `envconfig:"PROCESSED_FILE" default:"processed_comments.json"`
	} `envconfig:""`

	AI struct {
		Provider     string        `envconfig:"AI_PROVIDER" default:"gemini"`
		GeminiKey    string        `envconfig:"GEMINI_API_KEY"`
		GeminiModel  string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
		OpenAIKey    string        `envconfig:"OPENAI_API_KEY"`
		OpenAIURL    string        `envconfig:"OPENAI_BASE_URL"`
		OpenAIModel  string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout      time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
		MinInterval  time.Duration `envconfig:"AI_MIN_INTERVAL" default:"60s"`
		MaxAttempts  int           `envconfig:"AI_MAX_ATTEMPTS" default:"5"`
		BackoffUnit  time.Duration `envconfig:"AI_BACKOFF_UNIT" default:"30s"`
		SystemPrompt string        `envconfig:"SYSTEM_PROMPT" default:"Siz Instagram orqali mijozlarga yordam beruvchi yordamchisiz. Har doim o'zbek tilida, do'stona va professional tarzda javob bering. Qisqa va aniq javoblar bering."`
	} `envconfig:""`

	Poll struct {
		Interval       time.Duration `envconfig:"CHECK_INTERVAL" default:"60s"`
		ErrorDelay     time.Duration `envconfig:"ERROR_DELAY" default:"5s"`
		DMDelay        time.Duration `envconfig:"DM_DELAY" default:"2s"`
		PostLimit      int           `envconfig:"POST_LIMIT" default:"10"`
		CommentLimit   int           `envconfig:"COMMENT_LIMIT" default:"30"`
		MaxReplyLength int           `envconfig:"MAX_REPLY_LENGTH" default:"2000"`
	} `envconfig:""`

	Templates struct {
		KeywordReply     string `envconfig:"KEYWORD_REPLY" default:"Ma'lumotni direktingizga yubordik! ✉️"`
		FollowFirstReply string `envconfig:"FOLLOW_FIRST_REPLY" default:"Avval sahifamizga obuna bo'ling, keyin qayta yozing!"`
		DMMessage        string `envconfig:"DM_MESSAGE" default:"Salom! Ma'lumot uchun quyidagi linkni bosing:"`
		DefaultContent   string `envconfig:"DEFAULT_CONTENT_LINK" default:"https://t.me/malumotniberuvchibot"`
	} `envconfig:""`

	Telegram struct {
		Token       string `envconfig:"TELEGRAM_BOT_TOKEN"`
		Channel     string `envconfig:"TELEGRAM_CHANNEL"`
		ContentLink string `envconfig:"TELEGRAM_CONTENT_LINK"`
	} `envconfig:""`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	FollowCacheTTL time.Duration `envconfig:"FOLLOW_CACHE_TTL" default:"10m"`

	RabbitURL     string `envconfig:"RABBITMQ_URL"`
	ActivityQueue string `envconfig:"ACTIVITY_QUEUE" default:"comment_activity"`
}

// Load читает .env (если есть) и окружение.
func Load() (AppConfig, error) {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Instagram.Username) == "" {
		errs = append(errs, errors.New("INSTAGRAM_USERNAME не задан"))
	}
	if c.Instagram.Password == "" {
		errs = append(errs, errors.New("INSTAGRAM_PASSWORD не задан"))
	}
	switch c.AI.Provider {
	case "gemini":
		if c.AI.GeminiKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY не задан"))
		}
	case "openai":
		if c.AI.OpenAIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY не задан"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный AI_PROVIDER %q", c.AI.Provider))
	}
	if c.Poll.MaxReplyLength < 4 {
		errs = append(errs, errors.New("MAX_REPLY_LENGTH должен быть не меньше 4"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfig, errors.Join(errs...))
}

// ContentMappings собирает пары ключевое слово → ссылка из переменных CONTENT_*.
// Порядок соответствует порядку окружения процесса.
func ContentMappings() []domain.KeywordMapping {
	return parseContentMappings(os.Environ())
}

func parseContentMappings(environ []string) []domain.KeywordMapping {
	var out []domain.KeywordMapping
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, contentPrefix) {
			continue
		}
		keyword := strings.ToLower(strings.TrimPrefix(key, contentPrefix))
		if keyword == "" || strings.TrimSpace(value) == "" {
			continue
		}
		out = append(out, domain.KeywordMapping{Keyword: keyword, URL: strings.TrimSpace(value)})
	}
	return out
}
