package domain

import (
	"context"
	"time"
)

// ReplyPath описывает ветку обработки комментария.
type ReplyPath string

const (
	// PathEmpty — пустой комментарий, ответ не отправлялся.
	PathEmpty ReplyPath = "empty"
	// PathFollowGate — ключевое слово есть, но автор не подписан.
	PathFollowGate ReplyPath = "follow_gate"
	// PathKeyword — ключевое слово, ответ и личное сообщение со ссылкой.
	PathKeyword ReplyPath = "keyword"
	// PathAI — ответ сгенерирован ИИ.
	PathAI ReplyPath = "ai"
)

// ActivityEvent описывает итог обработки одного комментария.
type ActivityEvent struct {
	ID          string    `json:"id"`
	CommentID   string    `json:"comment_id"`
	PostID      string    `json:"post_id"`
	AuthorID    string    `json:"author_id"`
	Handle      string    `json:"handle"`
	Path        ReplyPath `json:"path"`
	Keyword     string    `json:"keyword,omitempty"`
	ReplySent   bool      `json:"reply_sent"`
	DMSent      bool      `json:"dm_sent"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ActivitySink принимает события обработки комментариев.
type ActivitySink interface {
	Publish(ctx context.Context, event ActivityEvent) error
}
