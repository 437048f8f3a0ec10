package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/core/services"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidSavepoint = errors.New("invalid savepoint name")

	savepointName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Tx это одна транзакция батча. Не безопасна для конкурентного использования.
type Tx struct {
	tx  *sql.Tx
	log *zap.Logger
}

var _ services.ProductWriter = (*Tx)(nil)

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "SAVEPOINT ", name)
}

func (t *Tx) RollbackToSavepoint(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "ROLLBACK TO SAVEPOINT ", name)
}

func (t *Tx) ReleaseSavepoint(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "RELEASE SAVEPOINT ", name)
}

func (t *Tx) savepointExec(ctx context.Context, stmt, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSavepoint, name)
	}
	if _, err := t.tx.ExecContext(ctx, stmt+name); err != nil {
		return fmt.Errorf("%s%s: %w", stmt, name, err)
	}
	return nil
}

func (t *Tx) UpsertCategory(ctx context.Context, code, description string) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO categories (code, description)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (code) DO UPDATE SET
			description = COALESCE(EXCLUDED.description, categories.description)
		RETURNING category_id`, code, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert category %s: %w", code, err)
	}
	return id, nil
}

// UpsertProduct возвращает стабильный product_id и признак вставки (xmax = 0 только у новой строки).
// Пустой ContentHash записывается как NULL.
func (t *Tx) UpsertProduct(ctx context.Context, p *models.Product, categoryID *int64) (uuid.UUID, bool, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var (
		stored   uuid.UUID
		inserted bool
	)
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO products (
			product_id, source, external_id, is_active, name, category_id,
			state, region, city, latitude, longitude, raw_source, content_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, NULLIF($13, ''))
		ON CONFLICT (source, external_id) DO UPDATE SET
			is_active    = EXCLUDED.is_active,
			name         = EXCLUDED.name,
			category_id  = EXCLUDED.category_id,
			state        = EXCLUDED.state,
			region       = EXCLUDED.region,
			city         = EXCLUDED.city,
			latitude     = EXCLUDED.latitude,
			longitude    = EXCLUDED.longitude,
			raw_source   = EXCLUDED.raw_source,
			content_hash = EXCLUDED.content_hash,
			updated_at   = NOW()
		RETURNING product_id, (xmax = 0)`,
		id, p.Source, p.ExternalID, p.IsActive, nullString(p.Name), categoryID,
		nullString(p.State), nullString(p.Region), nullString(p.City),
		p.Latitude, p.Longitude, jsonValue(p.RawSource), p.ContentHash,
	).Scan(&stored, &inserted)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert product %s/%s: %w", p.Source, p.ExternalID, err)
	}
	return stored, inserted, nil
}

func (t *Tx) ProductFingerprint(ctx context.Context, source, externalID string) (string, bool, error) {
	var hash sql.NullString
	err := t.tx.QueryRowContext(ctx,
		`SELECT content_hash FROM products WHERE source = $1 AND external_id = $2`,
		source, externalID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read fingerprint %s/%s: %w", source, externalID, err)
	}
	return hash.String, true, nil
}

func (t *Tx) ReplaceProductTypes(ctx context.Context, productID uuid.UUID, categoryID *int64, types []models.ProductType) error {
	if err := t.deleteChildren(ctx, "product_product_types", productID); err != nil {
		return err
	}
	if len(types) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(types))
	for _, pt := range types {
		var id int64
		err := t.tx.QueryRowContext(ctx, `
			INSERT INTO product_types (category_id, code, description)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (code) DO UPDATE SET
				category_id = COALESCE(EXCLUDED.category_id, product_types.category_id),
				description = COALESCE(EXCLUDED.description, product_types.description)
			RETURNING product_type_id`, categoryID, pt.Code, pt.Description).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert product type %s: %w", pt.Code, err)
		}
		ids = append(ids, id)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO product_product_types (product_id, product_type_id)
		SELECT $1, unnest($2::smallint[])
		ON CONFLICT DO NOTHING`, productID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("link product types: %w", err)
	}
	return nil
}

func (t *Tx) ReplaceAddresses(ctx context.Context, productID uuid.UUID, addresses []models.Address) error {
	rows := make([][]any, 0, len(addresses))
	for _, a := range addresses {
		rows = append(rows, []any{
			productID.String(), a.Kind, nullString(a.Line1), nullString(a.Line2), nullString(a.Line3),
			nullString(a.City), nullString(a.State), nullString(a.Postcode), nullString(a.Country),
			floatValue(a.Latitude), floatValue(a.Longitude),
		})
	}
	return t.replace(ctx, "product_addresses", productID, []string{
		"product_id", "kind", "line1", "line2", "line3", "city", "state", "postcode", "country", "latitude", "longitude",
	}, rows)
}

func (t *Tx) ReplaceContacts(ctx context.Context, productID uuid.UUID, contacts []models.Contact) error {
	rows := make([][]any, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []any{productID.String(), c.Kind, c.Value})
	}
	return t.replace(ctx, "product_contacts", productID, []string{"product_id", "kind", "value"}, rows)
}

func (t *Tx) ReplaceMedia(ctx context.Context, productID uuid.UUID, media []models.MediaItem) error {
	rows := make([][]any, 0, len(media))
	for _, m := range media {
		if m.URL == "" {
			continue
		}
		rows = append(rows, []any{
			productID.String(), nullString(m.Provider), m.URL, m.Ordinal, m.Role, nullString(m.MediaType), jsonValue(m.Meta),
		})
	}
	return t.replace(ctx, "product_media", productID, []string{
		"product_id", "provider", "url", "ordinal", "role", "media_type", "meta",
	}, rows)
}

func (t *Tx) ReplaceServices(ctx context.Context, productID uuid.UUID, svcs []models.Service) error {
	rows := make([][]any, 0, len(svcs))
	for _, s := range svcs {
		rows = append(rows, []any{
			productID.String(), nullString(s.Name), nullString(s.Kind),
			intValue(s.OccupancyAdults), intValue(s.OccupancyChildren), nullString(s.BedConfig), jsonValue(s.Details),
		})
	}
	return t.replace(ctx, "product_services", productID, []string{
		"product_id", "name", "service_kind", "occupancy_adults", "occupancy_children", "bed_config", "details",
	}, rows)
}

func (t *Tx) ReplaceRates(ctx context.Context, productID uuid.UUID, rates []models.Rate) error {
	rows := make([][]any, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, []any{
			productID.String(), decimalValue(r.Price), r.Currency,
			r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout), jsonValue(r.Constraints),
		})
	}
	return t.replace(ctx, "product_rates", productID, []string{
		"product_id", "price", "currency", "start_date", "end_date", "constraints_json",
	}, rows)
}

func (t *Tx) ReplaceDeals(ctx context.Context, productID uuid.UUID, deals []models.Deal) error {
	rows := make([][]any, 0, len(deals))
	for _, d := range deals {
		rows = append(rows, []any{
			productID.String(), nullString(d.Title), decimalValue(d.Price), d.Currency,
			d.StartDate.Format(dateLayout), d.EndDate.Format(dateLayout), jsonValue(d.Constraints),
		})
	}
	return t.replace(ctx, "product_deals", productID, []string{
		"product_id", "title", "price", "currency", "start_date", "end_date", "constraints_json",
	}, rows)
}

// ReplaceAttributeAssignments пишет только коды, уже существующие в каталоге.
func (t *Tx) ReplaceAttributeAssignments(ctx context.Context, productID uuid.UUID, codes []string) error {
	if err := t.deleteChildren(ctx, "product_attribute_values", productID); err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO product_attribute_values (product_id, attribute_id, value_bool)
		SELECT $1, attribute_id, TRUE
		FROM product_attributes
		WHERE code = ANY($2)
		ON CONFLICT DO NOTHING`, productID, pq.Array(codes))
	if err != nil {
		return fmt.Errorf("assign attributes: %w", err)
	}
	return nil
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *Tx) deleteChildren(ctx context.Context, table string, productID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(table)+" WHERE product_id = $1", productID)
	if err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

// replace удаляет дочерние строки продукта и вставляет новые через COPY.
func (t *Tx) replace(ctx context.Context, table string, productID uuid.UUID, columns []string, rows [][]any) error {
	if err := t.deleteChildren(ctx, table, productID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy into %s: %w", table, err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			return fmt.Errorf("copy row into %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy into %s: %w", table, err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy into %s: %w", table, err)
	}
	t.log.Debug("children replaced", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func floatValue(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func intValue(i *int) any {
	if i == nil {
		return nil
	}
	return int64(*i)
}

func decimalValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}
