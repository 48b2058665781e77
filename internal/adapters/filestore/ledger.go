package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ig-comment-bot/internal/domain"
)

// errCorrupt — файл прочитан, но не является JSON-массивом строк.
var errCorrupt = errors.New("corrupt ledger file")

// Ledger хранит обработанные идентификаторы в JSON-массиве на диске.
type Ledger struct {
	path string

	mu  sync.Mutex
	ids []string
	set map[string]struct{}
	// loaded означает, что ids отражает содержимое файла.
	loaded bool
}

var _ domain.ProcessedStore = (*Ledger)(nil)

// NewLedger создаёт файловый журнал.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path, set: make(map[string]struct{})}
}

// LoadProcessed читает файл. Отсутствующий файл означает пустой журнал.
func (l *Ledger) LoadProcessed(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadLocked(); err != nil {
		return nil, err
	}
	return append([]string(nil), l.ids...), nil
}

// MarkProcessed добавляет идентификатор и переписывает файл целиком.
func (l *Ledger) MarkProcessed(ctx context.Context, commentID string, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		// Испорченный JSON начинается заново, ошибки чтения возвращаются как есть.
		err := l.loadLocked()
		switch {
		case errors.Is(err, errCorrupt):
			l.ids = nil
			l.set = make(map[string]struct{})
			l.loaded = true
		case err != nil:
			return err
		}
	}
	if _, ok := l.set[commentID]; ok {
		return nil
	}
	next := append(append([]string(nil), l.ids...), commentID)
	if err := writeJSONAtomic(l.path, next); err != nil {
		return err
	}
	l.ids = next
	l.set[commentID] = struct{}{}
	return nil
}

func (l *Ledger) loadLocked() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		l.ids = nil
		l.set = make(map[string]struct{})
		l.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("filestore: read %s: %w", l.path, err)
	}
	var ids []string
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("filestore: decode %s: %w: %v", l.path, errCorrupt, err)
		}
	}
	set := make(map[string]struct{}, len(ids))
	uniq := ids[:0]
	for _, id := range ids {
		if _, ok := set[id]; ok || id == "" {
			continue
		}
		set[id] = struct{}{}
		uniq = append(uniq, id)
	}
	l.ids = uniq
	l.set = set
	l.loaded = true
	return nil
}

// writeJSONAtomic пишет во временный файл рядом и переименовывает его.
func writeJSONAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: rename %s: %w", path, err)
	}
	return nil
}
