package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore реализует документное хранилище поверх PostgreSQL.
// Документы лежат в одной таблице с jsonb-полями, частичное обновление
// выполняется слиянием jsonb одним запросом.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создаёт хранилище и инициализирует схему БД через миграции.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных ошибках БД.
func (s *PostgresStore) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})

	// Сетевые ошибки после исчерпания повторов отдаём как недоступность хранилища.
	if err != nil && isConnectionError(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// FetchCollection возвращает все документы указанной коллекции.
func (s *PostgresStore) FetchCollection(ctx context.Context, name string) ([]Document, error) {
	var docs []Document

	err := s.withRetry(ctx, func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT id, fields FROM documents WHERE collection = $1`,
			name,
		)
		if err != nil {
			return fmt.Errorf("select documents: %w", err)
		}
		defer rows.Close()

		docs = docs[:0]
		for rows.Next() {
			var (
				id  string
				raw []byte
			)
			if err := rows.Scan(&id, &raw); err != nil {
				return fmt.Errorf("scan document: %w", err)
			}

			fields := Fields{}
			if err := json.Unmarshal(raw, &fields); err != nil {
				return fmt.Errorf("decode fields: %w", err)
			}

			docs = append(docs, Document{ID: id, Fields: fields})
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// FetchDocument возвращает поля одного документа коллекции.
func (s *PostgresStore) FetchDocument(ctx context.Context, name, id string) (Fields, error) {
	var fields Fields

	err := s.withRetry(ctx, func() error {
		var raw []byte
		err := s.pool.QueryRow(ctx,
			`SELECT fields FROM documents WHERE collection = $1 AND id = $2`,
			name, id,
		).Scan(&raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
			}
			return fmt.Errorf("select document: %w", err)
		}

		fields = Fields{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("decode fields: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return fields, nil
}

// UpdateDocument выполняет слияние указанных полей с существующим документом.
// Поля, не перечисленные в partial, не затрагиваются. Запись выполняется одним запросом.
func (s *PostgresStore) UpdateDocument(ctx context.Context, name, id string, partial Fields) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("encode partial fields: %w", err)
	}

	return s.withRetry(ctx, func() error {
		cmdTag, err := s.pool.Exec(ctx,
			`UPDATE documents
			 SET fields = fields || $3::jsonb, updated_at = now()
			 WHERE collection = $1 AND id = $2`,
			name, id, raw,
		)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
		}

		return nil
	})
}
