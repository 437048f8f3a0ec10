package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"gotourism_loader/config"
)

const maxRetries = 10
const dbMaxOpenConns = 20
const retryDelay = 5 * time.Second

var ErrNotConnected = errors.New("database connection is not established")

type PostgresDatabase struct {
	config.PostgresConfig
	log *zap.Logger
	db  *sql.DB
	mu  sync.Mutex // Для защиты доступа к db

	retries int
	delay   time.Duration
}

func NewPgConnector(dbConfig config.PostgresConfig, log *zap.Logger) *PostgresDatabase {
	return &PostgresDatabase{
		PostgresConfig: dbConfig,
		log:            log.Named("postgres"),
		retries:        maxRetries,
		delay:          retryDelay,
	}
}

// Connect открывает пул и проверяет его пингом, повторяя попытки при недоступной базе.
func (pg *PostgresDatabase) Connect(ctx context.Context) (*sql.DB, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db != nil {
		return pg.db, nil
	}

	maxOpen := pg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = dbMaxOpenConns
	}

	var lastErr error
	for i := 0; i < pg.retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pg.delay):
			}
		}

		db, err := sql.Open("postgres", pg.GetConnectionString())
		if err != nil {
			lastErr = err
			pg.log.Warn("failed to open postgres",
				zap.Int("attempt", i+1), zap.Int("max", pg.retries),
				zap.String("dsn", pg.Redacted()), zap.Error(err))
			continue
		}

		db.SetMaxOpenConns(maxOpen)

		if err := db.PingContext(ctx); err != nil {
			lastErr = err
			pg.log.Warn("failed to ping postgres",
				zap.Int("attempt", i+1), zap.Int("max", pg.retries),
				zap.String("dsn", pg.Redacted()), zap.Error(err))
			db.Close()
			continue
		}

		pg.log.Info("connected to postgres", zap.String("dsn", pg.Redacted()))
		pg.db = db
		return pg.db, nil
	}
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", pg.retries, lastErr)
}

// Ping проверяет живость пула. Пул сам переоткрывает соединения, поэтому хэндл не закрывается.
func (pg *PostgresDatabase) Ping(ctx context.Context) error {
	pg.mu.Lock()
	db := pg.db
	pg.mu.Unlock()

	if db == nil {
		return ErrNotConnected
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (pg *PostgresDatabase) Close() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return nil
	}
	err := pg.db.Close()
	pg.db = nil
	return err
}
