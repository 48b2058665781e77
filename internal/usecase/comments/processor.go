package comments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/health"
	"ig-comment-bot/internal/infra/metrics"
)

// Ledger отмечает обработанные комментарии.
type Ledger interface {
	IsProcessed(id string) bool
	MarkProcessed(ctx context.Context, id string) error
}

// KeywordResolver находит ключевое слово и ссылку для него.
type KeywordResolver interface {
	Resolve(text string) (string, bool)
	ContentFor(keyword string) string
}

// Assistant генерирует текст ответа.
type Assistant interface {
	Generate(ctx context.Context, message, hint string) string
}

// Authenticator выполняет вход в аккаунт.
type Authenticator interface {
	Login(ctx context.Context) error
	Reauthenticate(ctx context.Context) error
}

// Templates — тексты ответов.
type Templates struct {
	KeywordReply     string
	FollowFirstReply string
	DMMessage        string
}

// Options задаёт лимиты и интервалы цикла.
type Options struct {
	PostLimit      int
	CommentLimit   int
	MaxReplyLength int
	PollInterval   time.Duration
	ErrorDelay     time.Duration
	DMDelay        time.Duration
	AIHint         string
	Templates      Templates
}

// Deps — зависимости обработчика. Stats, Activity и Status необязательны.
type Deps struct {
	Client    domain.SocialClient
	Ledger    Ledger
	Keywords  KeywordResolver
	Assistant Assistant
	Auth      Authenticator
	Stats     domain.StatsRepo
	Activity  domain.ActivitySink
	Status    func(string)
}

// Outcome описывает результат одного цикла.
type Outcome struct {
	// Handled ложно, если новых комментариев не нашлось.
	Handled   bool
	Comment   domain.Comment
	Path      domain.ReplyPath
	Keyword   string
	ReplySent bool
	DMSent    bool
}

// Processor обрабатывает не больше одного нового комментария за цикл.
type Processor struct {
	deps Deps
	opts Options
	log  zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProcessor создаёт обработчик комментариев.
func NewProcessor(deps Deps, opts Options, log zerolog.Logger) *Processor {
	if opts.PostLimit <= 0 {
		opts.PostLimit = 10
	}
	if opts.CommentLimit <= 0 {
		opts.CommentLimit = 30
	}
	if opts.MaxReplyLength < 4 {
		opts.MaxReplyLength = 2000
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.ErrorDelay <= 0 {
		opts.ErrorDelay = 5 * time.Second
	}
	if deps.Status == nil {
		deps.Status = func(string) {}
	}
	return &Processor{deps: deps, opts: opts, log: log, now: time.Now, sleep: sleepCtx}
}

// Run выполняет вход и крутит циклы до отмены контекста.
func (p *Processor) Run(ctx context.Context) {
	p.deps.Status(health.StatusLoading)
	for {
		err := p.deps.Auth.Login(ctx)
		if err == nil {
			break
		}
		p.log.Error().Err(err).Msg("не удалось войти в Instagram")
		p.deps.Status("error: " + err.Error())
		if p.sleep(ctx, p.opts.ErrorDelay) != nil {
			p.deps.Status(health.StatusStopped)
			return
		}
	}
	p.deps.Status(health.StatusRunning)
	p.log.Info().Dur("interval", p.opts.PollInterval).Msg("опрос комментариев запущен")

	for {
		if ctx.Err() != nil {
			break
		}
		wait := p.opts.PollInterval
		if _, err := p.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.PollCycleErrors.Inc()
			p.log.Error().Err(err).Msg("ошибка цикла опроса")
			p.deps.Status("error: " + err.Error())
			if errors.Is(err, domain.ErrAuth) {
				if rerr := p.deps.Auth.Reauthenticate(ctx); rerr != nil {
					p.log.Error().Err(rerr).Msg("повторный вход не удался")
				} else {
					p.log.Info().Msg("повторный вход выполнен")
				}
			}
			wait = p.opts.ErrorDelay
		} else {
			p.deps.Status(health.StatusRunning)
		}
		if p.sleep(ctx, wait) != nil {
			break
		}
	}
	p.deps.Status(health.StatusStopped)
	p.log.Info().Msg("опрос комментариев остановлен")
}

// RunCycle находит самый новый необработанный комментарий и отвечает на него.
func (p *Processor) RunCycle(ctx context.Context) (Outcome, error) {
	start := time.Now()
	defer func() { metrics.PollCycleSeconds.Observe(time.Since(start).Seconds()) }()

	log := p.log.With().Str("cycle_id", uuid.NewString()).Logger()

	posts, err := p.deps.Client.ListRecentPosts(ctx, p.opts.PostLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("list posts: %w", err)
	}
	if len(posts) == 0 {
		log.Debug().Msg("публикаций нет")
		return Outcome{}, nil
	}

	self := p.deps.Client.SelfID()
	for _, post := range posts {
		list, err := p.deps.Client.ListComments(ctx, post, p.opts.CommentLimit)
		if err != nil {
			if errors.Is(err, domain.ErrAuth) {
				return Outcome{}, fmt.Errorf("list comments %s: %w", post.ID, err)
			}
			log.Warn().Err(err).Str("post_id", post.ID).Msg("не удалось получить комментарии")
			continue
		}
		candidates := p.pending(list, self)
		if len(candidates) == 0 {
			continue
		}
		return p.handle(ctx, log, post, candidates[0])
	}
	log.Debug().Msg("новых комментариев нет")
	return Outcome{}, nil
}

// pending отбрасывает свои и уже обработанные комментарии и сортирует по убыванию ID.
func (p *Processor) pending(list []domain.Comment, self string) []domain.Comment {
	out := make([]domain.Comment, 0, len(list))
	for _, c := range list {
		if c.ID == "" || (self != "" && c.AuthorID == self) {
			continue
		}
		if p.deps.Ledger.IsProcessed(c.ID) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return domain.CompareIDs(out[i].ID, out[j].ID) > 0
	})
	return out
}

func (p *Processor) handle(ctx context.Context, log zerolog.Logger, post domain.Post, c domain.Comment) (Outcome, error) {
	log = log.With().Str("comment_id", c.ID).Str("post_id", post.ID).Str("author", c.AuthorHandle).Logger()
	out := Outcome{Handled: true, Comment: c}

	var replyErr error
	switch keyword, ok := p.deps.Keywords.Resolve(c.Text); {
	case strings.TrimSpace(c.Text) == "":
		out.Path = domain.PathEmpty
		log.Info().Msg("пустой комментарий")
	case ok:
		out.Keyword = keyword
		replyErr = p.handleKeyword(ctx, log, post, c, &out)
	default:
		out.Path = domain.PathAI
		answer := p.deps.Assistant.Generate(ctx, c.Text, p.opts.AIHint)
		reply := truncateRunes(mention(c.AuthorHandle, answer), p.opts.MaxReplyLength)
		replyErr = p.deps.Client.ReplyToComment(ctx, post, c.ID, reply)
		metrics.ObserveReply("reply", replyErr)
		out.ReplySent = replyErr == nil
		if replyErr != nil {
			log.Error().Err(replyErr).Msg("не удалось отправить ответ ИИ")
		} else {
			log.Info().Msg("ответ ИИ отправлен")
		}
	}

	// Отметка ставится всегда, даже если ответ не ушёл.
	if err := p.deps.Ledger.MarkProcessed(context.WithoutCancel(ctx), c.ID); err != nil {
		log.Error().Err(err).Msg("не удалось сохранить отметку")
	}
	metrics.CommentsProcessed.WithLabelValues(string(out.Path)).Inc()
	p.incrementStats(ctx, log, out)
	p.publish(ctx, log, out)

	if replyErr != nil && errors.Is(replyErr, domain.ErrAuth) {
		return out, fmt.Errorf("reply %s: %w", c.ID, replyErr)
	}
	return out, nil
}

func (p *Processor) handleKeyword(ctx context.Context, log zerolog.Logger, post domain.Post, c domain.Comment, out *Outcome) error {
	link := p.deps.Keywords.ContentFor(out.Keyword)
	log = log.With().Str("keyword", out.Keyword).Logger()

	following, err := p.deps.Client.IsFollowing(ctx, c.AuthorID)
	if err != nil {
		log.Warn().Err(err).Msg("не удалось проверить подписку, считаем подписанным")
		following = true
	}

	if !following {
		out.Path = domain.PathFollowGate
		err := p.deps.Client.ReplyToComment(ctx, post, c.ID, mention(c.AuthorHandle, p.opts.Templates.FollowFirstReply))
		metrics.ObserveReply("reply", err)
		out.ReplySent = err == nil
		if err != nil {
			log.Error().Err(err).Msg("не удалось попросить подписаться")
		} else {
			log.Info().Msg("автор не подписан, попросили подписаться")
		}
		return err
	}

	out.Path = domain.PathKeyword
	replyErr := p.deps.Client.ReplyToComment(ctx, post, c.ID, mention(c.AuthorHandle, p.opts.Templates.KeywordReply))
	metrics.ObserveReply("reply", replyErr)
	out.ReplySent = replyErr == nil
	if replyErr != nil {
		log.Error().Err(replyErr).Msg("не удалось ответить на комментарий")
	}

	_ = p.sleep(context.WithoutCancel(ctx), p.opts.DMDelay)
	dmErr := p.deps.Client.SendDirectMessage(ctx, c.AuthorID, DirectText(p.opts.Templates.DMMessage, link))
	metrics.ObserveReply("direct", dmErr)
	out.DMSent = dmErr == nil
	if dmErr != nil {
		log.Error().Err(dmErr).Msg("не удалось отправить личное сообщение")
	} else {
		log.Info().Str("link", link).Msg("ответ и личное сообщение отправлены")
	}
	return errors.Join(replyErr, dmErr)
}

func (p *Processor) incrementStats(ctx context.Context, log zerolog.Logger, out Outcome) {
	if p.deps.Stats == nil {
		return
	}
	inc := func(field domain.StatField) {
		if err := p.deps.Stats.IncrementStat(ctx, field, 1); err != nil {
			log.Warn().Err(err).Str("field", string(field)).Msg("не удалось обновить статистику")
		}
	}
	inc(domain.StatCommentsProcessed)
	if out.Keyword != "" {
		inc(domain.StatKeywordsTriggered)
	}
	if out.DMSent {
		inc(domain.StatDMsSent)
	}
}

func (p *Processor) publish(ctx context.Context, log zerolog.Logger, out Outcome) {
	if p.deps.Activity == nil {
		return
	}
	event := domain.ActivityEvent{
		ID:          uuid.NewString(),
		CommentID:   out.Comment.ID,
		PostID:      out.Comment.PostID,
		AuthorID:    out.Comment.AuthorID,
		Handle:      out.Comment.AuthorHandle,
		Path:        out.Path,
		Keyword:     out.Keyword,
		ReplySent:   out.ReplySent,
		DMSent:      out.DMSent,
		ProcessedAt: p.now().UTC(),
	}
	if err := p.deps.Activity.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("не удалось опубликовать событие")
	}
}

// DirectText собирает текст личного сообщения со ссылкой.
func DirectText(message, link string) string {
	return message + "\n\n👉 " + link
}

func mention(handle, text string) string {
	return "@" + handle + " " + text
}

// truncateRunes обрезает строку до limit символов, заканчивая многоточием.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
