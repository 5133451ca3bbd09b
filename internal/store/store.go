package store

import (
	"context"
	"io"
	"time"

	"github.com/mgcaisse/caisse/internal/domain"
)

// DefaultProductLimit listing page size when the caller does not specify one.
const DefaultProductLimit = 50

// ProductFilter narrows product listings. Soft-deleted products are included
// unless the caller opts out, listing semantics are explicit rather than
// implied (an admin view wants the full catalog).
type ProductFilter struct {
	Limit          int
	ExcludeDeleted bool
	Query          string
}

// Store is the durable local database of the register: products, sales and
// the pending-operation sync queue. Every operation may fail with
// ErrStorageUnavailable; failures are surfaced, never swallowed.
type Store interface {
	AddProduct(ctx context.Context, product *domain.Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	SoftDeleteProduct(ctx context.Context, id int64) error

	AddSale(ctx context.Context, sale *domain.Sale) (int64, error)
	CommitSale(ctx context.Context, sale *domain.Sale) (int64, error)
	GetSales(ctx context.Context, start, end time.Time) ([]domain.Sale, error)

	AddToSyncQueue(ctx context.Context, action string, payload string) (int64, error)
	GetSyncQueue(ctx context.Context) ([]domain.SyncQueueEntry, error)
	UpdateSyncStatus(ctx context.Context, id int64, status string) error

	GetLocalUserByEmail(ctx context.Context, email string) (*domain.LocalUser, error)
	UpsertLocalUser(ctx context.Context, user *domain.LocalUser) error
	TouchLocalUserLogin(ctx context.Context, id int64) error

	ImportProductsCSV(ctx context.Context, r io.Reader) (int, error)
	ExportProductsCSV(ctx context.Context, w io.Writer) error
}
