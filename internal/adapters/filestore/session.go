package filestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/session"

	"ig-comment-bot/internal/domain"
)

// ErrUnsupportedSessionFormat возвращается, если данные сессии не распознаны.
var ErrUnsupportedSessionFormat = errors.New("unsupported session format")

// Session хранит сериализованную сессию в файле.
type Session struct {
	path string
}

var (
	_ domain.SessionStore = (*Session)(nil)
	_ session.Storage     = (*Session)(nil)
)

// NewSession создаёт файловое хранилище сессии.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// LoadSession читает файл. Пустой или отсутствующий файл даёт session.ErrNotFound.
func (s *Session) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read session: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, session.ErrNotFound
	}
	return data, nil
}

// StoreSession атомарно перезаписывает файл.
func (s *Session) StoreSession(ctx context.Context, data []byte) error {
	return writeFileAtomic(s.path, data)
}

// DiscardSession удаляет файл. Отсутствие файла ошибкой не считается.
func (s *Session) DiscardSession(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filestore: remove session: %w", err)
	}
	return nil
}

// NormalizeSessionBytes принимает JSON сессии как есть или закодированный в base64
// и возвращает JSON. Флаг сообщает, потребовалось ли декодирование.
func NormalizeSessionBytes(raw []byte) ([]byte, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, errors.New("session is empty")
	}
	if json.Valid(trimmed) && (trimmed[0] == '{' || trimmed[0] == '[') {
		return append([]byte(nil), trimmed...), false, nil
	}

	candidate := strings.Trim(string(trimmed), "\"'\n\r\t ")
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		decoded, err := enc.DecodeString(candidate)
		if err != nil {
			continue
		}
		decoded = bytes.TrimSpace(decoded)
		if len(decoded) > 0 && json.Valid(decoded) {
			return decoded, true, nil
		}
	}
	return nil, false, ErrUnsupportedSessionFormat
}

// SeedSession записывает сессию из переменной окружения в файл, если файла ещё нет.
// Возвращает true, если файл был создан.
func SeedSession(path, encoded string) (bool, error) {
	if strings.TrimSpace(encoded) == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("filestore: stat session: %w", err)
	}
	data, _, err := NormalizeSessionBytes([]byte(encoded))
	if err != nil {
		return false, fmt.Errorf("filestore: seed session: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return false, err
	}
	return true, nil
}
