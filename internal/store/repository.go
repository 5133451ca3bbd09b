package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/pkg/common"
)

// GormStore is the GORM implementation of Store.
type GormStore struct {
	db *gorm.DB
}

// compile-time interface check
var _ Store = (*GormStore)(nil)

// NewGormStore creates a new GORM-based store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) AddProduct(ctx context.Context, product *domain.Product) (int64, error) {
	if strings.TrimSpace(product.Name) == "" {
		return 0, errors.Wrap(ErrConstraintViolation, "product name is required")
	}
	if product.Price < 0 {
		return 0, errors.Wrap(ErrConstraintViolation, "price must not be negative")
	}
	if product.Stock < 0 || product.MinStock < 0 {
		return 0, errors.Wrap(ErrConstraintViolation, "stock must not be negative")
	}

	// Uniqueness only counts against non-deleted products, a retired SKU may
	// be reassigned.
	if product.SKU != nil && *product.SKU != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&domain.Product{}).
			Where("sku = ? AND is_deleted = ?", *product.SKU, false).
			Count(&count).Error; err != nil {
			return 0, wrapDBErr(err, "check sku")
		}
		if count > 0 {
			return 0, errors.Wrapf(ErrConstraintViolation, "sku %s already exists", *product.SKU)
		}
	}
	if product.Barcode != nil && *product.Barcode != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&domain.Product{}).
			Where("barcode = ? AND is_deleted = ?", *product.Barcode, false).
			Count(&count).Error; err != nil {
			return 0, wrapDBErr(err, "check barcode")
		}
		if count > 0 {
			return 0, errors.Wrapf(ErrConstraintViolation, "barcode %s already exists", *product.Barcode)
		}
	}

	now := time.Now()
	product.ID = common.UUIDint64()
	product.Price = common.RoundCurrency(product.Price)
	product.CreatedAt = now
	product.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return 0, wrapDBErr(err, "create product")
	}
	return product.ID, nil
}

func (s *GormStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, wrapDBErr(err, "get product")
	}
	return &product, nil
}

func (s *GormStore) GetProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultProductLimit
	}

	query := s.db.WithContext(ctx).Model(&domain.Product{})
	if filter.ExcludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

	var rows []domain.Product
	if err := query.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, wrapDBErr(err, "list products")
	}
	return rows, nil
}

// UpdateProduct merges patch into the stored record inside a transaction so
// concurrent writers cannot lose each other's fields.
func (s *GormStore) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	var updated domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product domain.Product
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			return wrapDBErr(err, "load product")
		}

		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return errors.Wrap(ErrConstraintViolation, "product name is required")
			}
			product.Name = *patch.Name
		}
		if patch.SKU != nil {
			product.SKU = patch.SKU
		}
		if patch.Barcode != nil {
			product.Barcode = patch.Barcode
		}
		if patch.Price != nil {
			if *patch.Price < 0 {
				return errors.Wrap(ErrConstraintViolation, "price must not be negative")
			}
			product.Price = common.RoundCurrency(*patch.Price)
		}
		if patch.Stock != nil {
			if *patch.Stock < 0 {
				return errors.Wrap(ErrConstraintViolation, "stock must not be negative")
			}
			product.Stock = *patch.Stock
		}
		if patch.MinStock != nil {
			if *patch.MinStock < 0 {
				return errors.Wrap(ErrConstraintViolation, "min_stock must not be negative")
			}
			product.MinStock = *patch.MinStock
		}
		if patch.Deleted != nil {
			product.IsDeleted = *patch.Deleted
		}
		product.UpdatedAt = time.Now()

		if err := tx.Save(&product).Error; err != nil {
			return wrapDBErr(err, "save product")
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *GormStore) SoftDeleteProduct(ctx context.Context, id int64) error {
	deleted := true
	_, err := s.UpdateProduct(ctx, id, domain.ProductPatch{Deleted: &deleted})
	return err
}

func (s *GormStore) AddSale(ctx context.Context, sale *domain.Sale) (int64, error) {
	sale.ID = common.UUIDint64()
	sale.Total = common.RoundCurrency(sale.Total)
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(sale).Error; err != nil {
		return 0, wrapDBErr(err, "create sale")
	}
	return sale.ID, nil
}

// CommitSale persists a sale and decrements stock for every line in a single
// transaction. The decrement is guarded in SQL, a line whose current stock
// fell below its quantity aborts the whole transaction and nothing is
// written. This keeps the stock invariant under concurrent submissions, two
// registers racing on the last units cannot both win.
func (s *GormStore) CommitSale(ctx context.Context, sale *domain.Sale) (int64, error) {
	sale.ID = common.UUIDint64()
	sale.Total = common.RoundCurrency(sale.Total)
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range sale.Items {
			result := tx.Model(&domain.Product{}).
				Where("id = ? AND is_deleted = ? AND stock >= ?",
					item.ProductID, false, item.Quantity).
				Updates(map[string]interface{}{
					"stock":      gorm.Expr("stock - ?", item.Quantity),
					"updated_at": time.Now(),
				})
			if result.Error != nil {
				return wrapDBErr(result.Error, "decrement stock")
			}
			if result.RowsAffected == 0 {
				return errors.Wrapf(ErrConstraintViolation,
					"insufficient stock for %s", item.Name)
			}
		}
		return wrapDBErr(tx.Create(sale).Error, "create sale")
	})
	if err != nil {
		return 0, err
	}
	return sale.ID, nil
}

// GetSales returns all sales created within [start, end] inclusive. A zero
// start means the epoch, a zero end means now.
func (s *GormStore) GetSales(ctx context.Context, start, end time.Time) ([]domain.Sale, error) {
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	if end.IsZero() {
		end = time.Now()
	}
	var rows []domain.Sale
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, wrapDBErr(err, "list sales")
	}
	return rows, nil
}

func (s *GormStore) AddToSyncQueue(ctx context.Context, action string, payload string) (int64, error) {
	now := time.Now()
	entry := domain.SyncQueueEntry{
		ID:        common.UUIDint64(),
		Action:    action,
		Payload:   payload,
		Status:    domain.SyncPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return 0, wrapDBErr(err, "enqueue sync entry")
	}
	return entry.ID, nil
}

// GetSyncQueue returns pending entries in creation order.
func (s *GormStore) GetSyncQueue(ctx context.Context) ([]domain.SyncQueueEntry, error) {
	var rows []domain.SyncQueueEntry
	if err := s.db.WithContext(ctx).
		Where("status = ?", domain.SyncPending).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, wrapDBErr(err, "list sync queue")
	}
	return rows, nil
}

func (s *GormStore) UpdateSyncStatus(ctx context.Context, id int64, status string) error {
	result := s.db.WithContext(ctx).
		Model(&domain.SyncQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return wrapDBErr(result.Error, "update sync status")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "sync entry %d", id)
	}
	return nil
}

func (s *GormStore) GetLocalUserByEmail(ctx context.Context, email string) (*domain.LocalUser, error) {
	var user domain.LocalUser
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrapDBErr(err, "get local user")
	}
	return &user, nil
}

// UpsertLocalUser provisions or refreshes a local operator account so a user
// who signed in online once can keep signing in offline.
func (s *GormStore) UpsertLocalUser(ctx context.Context, user *domain.LocalUser) error {
	now := time.Now()
	var existing domain.LocalUser
	err := s.db.WithContext(ctx).Where("email = ?", user.Email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if user.ID == 0 {
			user.ID = common.UUIDint64()
		}
		user.CreatedAt = now
		user.UpdatedAt = now
		return wrapDBErr(s.db.WithContext(ctx).Create(user).Error, "create local user")
	}
	if err != nil {
		return wrapDBErr(err, "load local user")
	}

	user.ID = existing.ID
	return wrapDBErr(s.db.WithContext(ctx).
		Model(&domain.LocalUser{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"serial_hash": user.SerialHash,
			"name":        user.Name,
			"status":      user.Status,
			"updated_at":  now,
		}).Error, "update local user")
}

func (s *GormStore) TouchLocalUserLogin(ctx context.Context, id int64) error {
	return wrapDBErr(s.db.WithContext(ctx).
		Model(&domain.LocalUser{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login": time.Now(),
			"updated_at": time.Now(),
		}).Error, "touch local user")
}
