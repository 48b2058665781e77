package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/metrics"
)

// Ledger помнит обработанные комментарии: зеркало в памяти, основное хранилище и файл.
type Ledger struct {
	primary  domain.ProcessedStore
	fallback domain.ProcessedStore
	log      zerolog.Logger
	now      func() time.Time

	mu  sync.RWMutex
	ids map[string]struct{}
}

// New создаёт журнал. primary может быть nil (режим только с файлом).
func New(primary, fallback domain.ProcessedStore, log zerolog.Logger) *Ledger {
	return &Ledger{
		primary:  primary,
		fallback: fallback,
		log:      log,
		now:      time.Now,
		ids:      make(map[string]struct{}),
	}
}

// LoadAll наполняет зеркало из обоих хранилищ и досылает в основное то, что есть только в файле.
func (l *Ledger) LoadAll(ctx context.Context) (int, error) {
	var primaryIDs, fileIDs []string
	var primaryErr, fileErr error

	if l.primary != nil {
		primaryIDs, primaryErr = l.primary.LoadProcessed(ctx)
		if primaryErr != nil {
			l.log.Warn().Err(primaryErr).Msg("не удалось прочитать журнал из БД, используем файл")
		}
	}
	if l.fallback != nil {
		fileIDs, fileErr = l.fallback.LoadProcessed(ctx)
		if fileErr != nil {
			l.log.Warn().Err(fileErr).Msg("не удалось прочитать файл журнала")
		}
	}
	if (l.primary == nil || primaryErr != nil) && (l.fallback == nil || fileErr != nil) {
		err := errors.Join(primaryErr, fileErr)
		if err == nil {
			err = errors.New("no ledger backends configured")
		}
		return 0, fmt.Errorf("load ledger: %w: %w", domain.ErrPersist, err)
	}

	inPrimary := make(map[string]struct{}, len(primaryIDs))
	for _, id := range primaryIDs {
		inPrimary[id] = struct{}{}
	}

	// Зеркало хранит объединение БД и файла, а не только основное хранилище.
	l.mu.Lock()
	for _, id := range primaryIDs {
		l.ids[id] = struct{}{}
	}
	for _, id := range fileIDs {
		l.ids[id] = struct{}{}
	}
	total := len(l.ids)
	l.mu.Unlock()
	metrics.LedgerSize.Set(float64(total))

	if l.primary != nil && primaryErr == nil {
		backfilled := 0
		for _, id := range fileIDs {
			if _, ok := inPrimary[id]; ok {
				continue
			}
			if err := l.primary.MarkProcessed(ctx, id, l.now()); err != nil {
				metrics.LedgerPersistErrors.WithLabelValues("primary").Inc()
				l.log.Warn().Err(err).Str("comment_id", id).Msg("не удалось перенести идентификатор в БД")
				break
			}
			backfilled++
		}
		if backfilled > 0 {
			l.log.Info().Int("count", backfilled).Msg("идентификаторы из файла перенесены в БД")
		}
	}
	return total, nil
}

// IsProcessed проверяет зеркало в памяти.
func (l *Ledger) IsProcessed(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// Len возвращает число известных идентификаторов.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// MarkProcessed записывает идентификатор в зеркало, затем в основное хранилище и файл.
// Ошибка возвращается только если не сохранилось ни одно хранилище.
func (l *Ledger) MarkProcessed(ctx context.Context, id string) error {
	l.mu.Lock()
	if _, ok := l.ids[id]; ok {
		l.mu.Unlock()
		return nil
	}
	l.ids[id] = struct{}{}
	total := len(l.ids)
	l.mu.Unlock()
	metrics.LedgerSize.Set(float64(total))

	at := l.now()
	persisted := false
	var errs []error
	if l.primary != nil {
		if err := l.primary.MarkProcessed(ctx, id, at); err != nil {
			metrics.LedgerPersistErrors.WithLabelValues("primary").Inc()
			l.log.Warn().Err(err).Str("comment_id", id).Msg("не удалось сохранить отметку в БД")
			errs = append(errs, err)
		} else {
			persisted = true
		}
	}
	if l.fallback != nil {
		if err := l.fallback.MarkProcessed(ctx, id, at); err != nil {
			metrics.LedgerPersistErrors.WithLabelValues("file").Inc()
			l.log.Warn().Err(err).Str("comment_id", id).Msg("не удалось сохранить отметку в файл")
			errs = append(errs, err)
		} else {
			persisted = true
		}
	}
	if persisted {
		return nil
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no ledger backends configured"))
	}
	return fmt.Errorf("mark %s: %w: %w", id, domain.ErrPersist, errors.Join(errs...))
}
