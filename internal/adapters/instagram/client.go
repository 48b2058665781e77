package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/metrics"
)

// Client обращается к HTTP-шлюзу автоматизации Instagram.
type Client struct {
	http    *http.Client
	baseURL string

	mu        sync.RWMutex
	selfID    string
	sessionID string
}

var _ domain.SocialClient = (*Client)(nil)

// NewClient создаёт клиента шлюза.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Login выполняет вход. Непустой session передаётся шлюзу для восстановления.
func (c *Client) Login(ctx context.Context, creds domain.Credentials, session []byte) ([]byte, error) {
	req := loginRequest{Username: creds.Username, Password: creds.Password}
	if len(bytes.TrimSpace(session)) > 0 {
		if !json.Valid(session) {
			return nil, fmt.Errorf("instagram: stored session is not JSON: %w", domain.ErrAuth)
		}
		req.Settings = json.RawMessage(session)
	}
	var resp loginResponse
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.UserID == "" {
		return nil, fmt.Errorf("instagram: login returned no user id: %w", domain.ErrAuth)
	}
	c.mu.Lock()
	c.selfID = string(resp.UserID)
	c.sessionID = resp.SessionID
	c.mu.Unlock()

	if len(resp.Settings) == 0 {
		return append([]byte(nil), session...), nil
	}
	return []byte(resp.Settings), nil
}

// SelfID возвращает идентификатор аккаунта после входа.
func (c *Client) SelfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selfID
}

// ListRecentPosts возвращает последние публикации аккаунта.
func (c *Client) ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	q := url.Values{}
	q.Set("user_id", c.SelfID())
	q.Set("amount", strconv.Itoa(limit))
	var medias []mediaDTO
	if err := c.do(ctx, "user_medias", http.MethodGet, "/media/user_medias", q, nil, &medias); err != nil {
		return nil, err
	}
	posts := make([]domain.Post, 0, len(medias))
	for _, m := range medias {
		if m.PK == "" {
			continue
		}
		posts = append(posts, domain.Post{ID: string(m.PK), Code: m.Code})
	}
	return posts, nil
}

// ListComments возвращает комментарии публикации.
func (c *Client) ListComments(ctx context.Context, post domain.Post, limit int) ([]domain.Comment, error) {
	q := url.Values{}
	q.Set("media_id", post.ID)
	q.Set("amount", strconv.Itoa(limit))
	var items []commentDTO
	if err := c.do(ctx, "comments", http.MethodGet, "/media/comments", q, nil, &items); err != nil {
		return nil, err
	}
	comments := make([]domain.Comment, 0, len(items))
	for _, it := range items {
		if it.PK == "" {
			continue
		}
		comments = append(comments, domain.Comment{
			ID:           string(it.PK),
			PostID:       post.ID,
			AuthorID:     string(it.User.PK),
			AuthorHandle: it.User.Username,
			Text:         it.Text,
		})
	}
	return comments, nil
}

// ReplyToComment публикует ответ в ветке комментария.
func (c *Client) ReplyToComment(ctx context.Context, post domain.Post, commentID, text string) error {
	body := replyRequest{MediaID: post.ID, Text: text, RepliedToCommentID: commentID}
	return c.do(ctx, "comment_reply", http.MethodPost, "/media/comment", nil, body, nil)
}

// SendDirectMessage отправляет личное сообщение одному пользователю.
func (c *Client) SendDirectMessage(ctx context.Context, userID, text string) error {
	body := directRequest{UserIDs: []string{userID}, Text: text}
	return c.do(ctx, "direct_send", http.MethodPost, "/direct/send", nil, body, nil)
}

// IsFollowing сообщает, подписан ли пользователь на аккаунт.
func (c *Client) IsFollowing(ctx context.Context, userID string) (bool, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	var fr friendshipDTO
	if err := c.do(ctx, "friendship", http.MethodGet, "/user/friendship", q, nil, &fr); err != nil {
		return false, err
	}
	return fr.FollowedBy, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("instagram", op, path, start, err) }()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("instagram: marshal %s: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("instagram: build %s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.mu.RLock()
	if c.sessionID != "" {
		req.Header.Set("X-Session-ID", c.sessionID)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("instagram: %s: %w", op, ctx.Err())
		}
		return fmt.Errorf("instagram: %s: %w: %v", op, domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("instagram: read %s: %w: %v", op, domain.ErrTransient, err)
	}
	if resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("instagram: decode %s: %w", op, err)
	}
	return nil
}

func statusError(op string, code int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	msg := er.Detail
	if msg == "" {
		msg = er.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("instagram: %s: status %d: %w: %s", op, code, domain.ErrAuth, msg)
	case strings.Contains(strings.ToLower(msg), "challenge") || strings.Contains(strings.ToLower(msg), "login_required"):
		return fmt.Errorf("instagram: %s: status %d: %w: %s", op, code, domain.ErrAuth, msg)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("instagram: %s: status %d: %w: %s", op, code, domain.ErrTransient, msg)
	default:
		return fmt.Errorf("instagram: %s: status %d: %s", op, code, msg)
	}
}
