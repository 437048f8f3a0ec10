package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/core/services"
)

// Store реализует шлюз к Postgres для загрузчика и реестра атрибутов.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

var (
	_ services.Gateway          = (*Store)(nil)
	_ services.AttributeCatalog = (*Store)(nil)
)

func New(db *sql.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log.Named("storage")}
}

func (s *Store) Begin(ctx context.Context) (services.ProductWriter, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx, log: s.log}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) LoadAttributeCodes(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT attribute_id, code FROM product_attributes`)
	if err != nil {
		return nil, fmt.Errorf("load attribute codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			code string
		)
		if err := rows.Scan(&id, &code); err != nil {
			return nil, fmt.Errorf("scan attribute code: %w", err)
		}
		codes[code] = id
	}
	return codes, rows.Err()
}

// UpsertAttributeDefinitions пишет определения в отдельной транзакции, чтобы
// они были видны до коммита текущего батча продуктов.
func (s *Store) UpsertAttributeDefinitions(ctx context.Context, defs []models.AttributeDefinition) (map[string]int64, error) {
	ids := make(map[string]int64, len(defs))
	if len(defs) == 0 {
		return ids, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attribute transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_attributes (code, label, data_type, facet, description)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (code) DO UPDATE SET
			label = EXCLUDED.label,
			facet = EXCLUDED.facet,
			description = COALESCE(EXCLUDED.description, product_attributes.description),
			updated_at = NOW()
		RETURNING attribute_id`)
	if err != nil {
		return nil, fmt.Errorf("prepare attribute upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range defs {
		dataType := d.DataType
		if dataType == "" {
			dataType = models.DataTypeBool
		}
		var id int64
		if err := stmt.QueryRowContext(ctx, d.Code, d.Label, dataType, d.Facet, d.Description).Scan(&id); err != nil {
			return nil, fmt.Errorf("upsert attribute %s: %w", d.Code, err)
		}
		ids[d.Code] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attribute definitions: %w", err)
	}
	s.log.Info("attribute definitions stored", zap.Int("count", len(ids)))
	return ids, nil
}

// Counts returns row counts per product table, used by integration checks and the CLI summary.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	tables := []string{
		"products", "product_addresses", "product_contacts", "product_media",
		"product_attribute_values", "product_services", "product_rates", "product_deals",
	}
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+pq.QuoteIdentifier(table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
