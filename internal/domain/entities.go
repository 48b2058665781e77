package domain

import (
	"strings"
	"time"
)

// Post описывает публикацию аккаунта, под которой собираются комментарии.
type Post struct {
	ID   string
	Code string
}

// Comment представляет комментарий под публикацией.
// ID монотонно растёт в пределах публикации и служит ключом свежести.
type Comment struct {
	ID           string
	PostID       string
	AuthorID     string
	AuthorHandle string
	Text         string
}

// KeywordMapping связывает ключевое слово с ссылкой на контент.
type KeywordMapping struct {
	Keyword string
	URL     string
}

// Credentials содержит логин и пароль аккаунта Instagram.
type Credentials struct {
	Username string
	Password string
}

// StatField перечисляет суточные счётчики.
type StatField string

const (
	StatCommentsProcessed StatField = "comments_processed"
	StatDMsSent           StatField = "dms_sent"
	StatKeywordsTriggered StatField = "keywords_triggered"
)

// Valid сообщает, известен ли счётчик.
func (f StatField) Valid() bool {
	switch f {
	case StatCommentsProcessed, StatDMsSent, StatKeywordsTriggered:
		return true
	}
	return false
}

// DailyStats содержит счётчики за календарный день.
type DailyStats struct {
	Date              time.Time `json:"date"`
	CommentsProcessed int       `json:"comments_processed"`
	DMsSent           int       `json:"dms_sent"`
	KeywordsTriggered int       `json:"keywords_triggered"`
}

// CompareIDs сравнивает числовые идентификаторы, записанные строками.
// Более длинная строка из цифр считается большей; при равной длине сравнение лексикографическое.
func CompareIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
