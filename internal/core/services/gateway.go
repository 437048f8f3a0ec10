package services

import (
	"context"

	"github.com/google/uuid"
	"gotourism_loader/internal/core/models"
)

// ProductWriter определяет операции записи одного продукта внутри открытой транзакции.
// Все Replace* методы удаляют дочерние строки продукта и вставляют их заново.
type ProductWriter interface {
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error

	UpsertCategory(ctx context.Context, code, description string) (int64, error)
	// UpsertProduct вставляет или обновляет продукт по (source, external_id).
	UpsertProduct(ctx context.Context, p *models.Product, categoryID *int64) (id uuid.UUID, inserted bool, err error)
	ProductFingerprint(ctx context.Context, source, externalID string) (hash string, found bool, err error)

	ReplaceProductTypes(ctx context.Context, productID uuid.UUID, categoryID *int64, types []models.ProductType) error
	ReplaceAddresses(ctx context.Context, productID uuid.UUID, addresses []models.Address) error
	ReplaceContacts(ctx context.Context, productID uuid.UUID, contacts []models.Contact) error
	ReplaceMedia(ctx context.Context, productID uuid.UUID, media []models.MediaItem) error
	ReplaceServices(ctx context.Context, productID uuid.UUID, services []models.Service) error
	ReplaceRates(ctx context.Context, productID uuid.UUID, rates []models.Rate) error
	ReplaceDeals(ctx context.Context, productID uuid.UUID, deals []models.Deal) error
	ReplaceAttributeAssignments(ctx context.Context, productID uuid.UUID, codes []string) error

	Commit() error
	Rollback() error
}

// Gateway is the relational store as seen by the loader.
type Gateway interface {
	Begin(ctx context.Context) (ProductWriter, error)
	Ping(ctx context.Context) error
}

// AttributeCatalog хранит определения атрибутов, общие для всех продуктов.
type AttributeCatalog interface {
	LoadAttributeCodes(ctx context.Context) (map[string]int64, error)
	// UpsertAttributeDefinitions пишет определения в собственной транзакции и возвращает code -> id.
	UpsertAttributeDefinitions(ctx context.Context, defs []models.AttributeDefinition) (map[string]int64, error)
}
