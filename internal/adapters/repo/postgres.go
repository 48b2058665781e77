package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/metrics"
)

// Postgres реализует хранилища журнала, сессии и статистики на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var (
	_ domain.ProcessedStore = (*Postgres)(nil)
	_ domain.SessionStore   = (*Postgres)(nil)
	_ domain.StatsRepo      = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, now: time.Now}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS instagram_session (
		id SERIAL PRIMARY KEY,
		session_data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS processed_comments (
		id SERIAL PRIMARY KEY,
		comment_id VARCHAR(50) UNIQUE NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS statistics (
		id SERIAL PRIMARY KEY,
		stat_date DATE DEFAULT CURRENT_DATE,
		comments_processed INT DEFAULT 0,
		dms_sent INT DEFAULT 0,
		keywords_triggered INT DEFAULT 0,
		UNIQUE(stat_date)
	)`,
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Migrate создаёт таблицы, если их ещё нет.
func (p *Postgres) Migrate(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	for _, q := range schema {
		start := time.Now()
		_, err := p.pool.Exec(ctx, q)
		metrics.ObserveNetworkRequest("postgres", "migrate", "schema", start, err)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// LoadProcessed возвращает все обработанные идентификаторы комментариев.
func (p *Postgres) LoadProcessed(ctx context.Context) ([]string, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT comment_id FROM processed_comments`)
	metrics.ObserveNetworkRequest("postgres", "processed_comments_list", "processed_comments", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkProcessed идемпотентно сохраняет идентификатор комментария.
func (p *Postgres) MarkProcessed(ctx context.Context, commentID string, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if at.IsZero() {
		at = p.now()
	}
	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO processed_comments (comment_id, processed_at)
VALUES ($1, $2)
ON CONFLICT (comment_id) DO NOTHING
`, commentID, at.UTC())
	metrics.ObserveNetworkRequest("postgres", "processed_comments_insert", "processed_comments", start, err)
	return err
}

// LoadSession загружает последнюю сохранённую сессию.
func (p *Postgres) LoadSession(ctx context.Context) ([]byte, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var data string
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT session_data FROM instagram_session ORDER BY updated_at DESC LIMIT 1`).Scan(&data)
	metrics.ObserveNetworkRequest("postgres", "instagram_session_load", "instagram_session", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, session.ErrNotFound
	}
	return []byte(data), nil
}

// StoreSession заменяет сохранённую сессию новой.
func (p *Postgres) StoreSession(ctx context.Context, data []byte) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "instagram_session", start, err)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM instagram_session`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO instagram_session (session_data, updated_at) VALUES ($1, $2)`, string(data), p.now().UTC()); err != nil {
		return err
	}
	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "instagram_session_store", "instagram_session", start, err)
	return err
}

// DiscardSession удаляет сохранённую сессию.
func (p *Postgres) DiscardSession(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM instagram_session`)
	metrics.ObserveNetworkRequest("postgres", "instagram_session_discard", "instagram_session", start, err)
	return err
}

// IncrementStat увеличивает суточный счётчик.
func (p *Postgres) IncrementStat(ctx context.Context, field domain.StatField, amount int) error {
	if !field.Valid() {
		return fmt.Errorf("unknown stat field %q", field)
	}
	if amount <= 0 {
		return nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	// field проверен через Valid, поэтому подстановка имени колонки безопасна.
	query := fmt.Sprintf(`
INSERT INTO statistics (stat_date, %[1]s)
VALUES (CURRENT_DATE, $1)
ON CONFLICT (stat_date)
DO UPDATE SET %[1]s = statistics.%[1]s + EXCLUDED.%[1]s
`, field)
	start := time.Now()
	_, err := p.pool.Exec(ctx, query, amount)
	metrics.ObserveNetworkRequest("postgres", "statistics_increment", string(field), start, err)
	return err
}

// TodayStats возвращает счётчики за текущий день.
func (p *Postgres) TodayStats(ctx context.Context) (domain.DailyStats, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var stats domain.DailyStats
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT stat_date, comments_processed, dms_sent, keywords_triggered
FROM statistics WHERE stat_date = CURRENT_DATE
`).Scan(&stats.Date, &stats.CommentsProcessed, &stats.DMsSent, &stats.KeywordsTriggered)
	metrics.ObserveNetworkRequest("postgres", "statistics_today", "statistics", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		now := p.now()
		return domain.DailyStats{Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}, nil
	}
	if err != nil {
		return domain.DailyStats{}, err
	}
	return stats, nil
}
