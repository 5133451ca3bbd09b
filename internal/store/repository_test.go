package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mgcaisse/caisse/internal/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(domain.Tables...))
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return NewGormStore(db)
}

func strptr(v string) *string { return &v }

func TestAddProductAssignsIdentityAndTimestamps(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	product := &domain.Product{
		Name:     "Pain",
		SKU:      strptr("PAIN001"),
		Price:    0.5,
		Stock:    100,
		MinStock: 10,
	}
	id, err := st.AddProduct(ctx, product)
	require.NoError(t, err)
	assert.NotZero(t, id)

	rows, err := st.GetProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Pain", got.Name)
	assert.Equal(t, 0.500, got.Price)
	assert.Equal(t, 100, got.Stock)
	assert.Equal(t, got.CreatedAt.Unix(), got.UpdatedAt.Unix())
}

func TestAddProductRejectsDuplicateSKU(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.AddProduct(ctx, &domain.Product{Name: "Pain", SKU: strptr("PAIN001"), Price: 0.5})
	require.NoError(t, err)

	_, err = st.AddProduct(ctx, &domain.Product{Name: "Baguette", SKU: strptr("PAIN001"), Price: 0.6})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// no partial insert
	rows, err := st.GetProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAddProductAllowsReusedSKUAfterSoftDelete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.AddProduct(ctx, &domain.Product{Name: "Pain", SKU: strptr("PAIN001"), Price: 0.5})
	require.NoError(t, err)
	require.NoError(t, st.SoftDeleteProduct(ctx, id))

	_, err = st.AddProduct(ctx, &domain.Product{Name: "Pain v2", SKU: strptr("PAIN001"), Price: 0.55})
	assert.NoError(t, err)
}

func TestAddProductRejectsNegativeValues(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.AddProduct(ctx, &domain.Product{Name: "Pain", Price: -1})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = st.AddProduct(ctx, &domain.Product{Name: "Pain", Price: 1, Stock: -3})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestGetProductsFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.AddProduct(ctx, &domain.Product{Name: "Pain", SKU: strptr("PAIN001"), Price: 0.5})
	require.NoError(t, err)
	id, err := st.AddProduct(ctx, &domain.Product{Name: "Lait", SKU: strptr("LAIT001"), Price: 1.2})
	require.NoError(t, err)
	require.NoError(t, st.SoftDeleteProduct(ctx, id))

	// deleted rows stay visible unless explicitly excluded
	all, err := st.GetProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := st.GetProducts(ctx, ProductFilter{ExcludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Pain", active[0].Name)

	found, err := st.GetProducts(ctx, ProductFilter{Query: "pain"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Pain", found[0].Name)
}

func TestUpdateProductMergesPatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.AddProduct(ctx, &domain.Product{Name: "Pain", SKU: strptr("PAIN001"), Price: 0.5, Stock: 100})
	require.NoError(t, err)

	newStock := 98
	updated, err := st.UpdateProduct(ctx, id, domain.ProductPatch{Stock: &newStock})
	require.NoError(t, err)
	assert.Equal(t, 98, updated.Stock)
	assert.Equal(t, "Pain", updated.Name)
	assert.Equal(t, 0.5, updated.Price)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestUpdateProductNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.UpdateProduct(context.Background(), 424242, domain.ProductPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommitSaleDecrementsStockAtomically(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	bread := &domain.Product{Name: "Pain", Price: 0.5, Stock: 100}
	_, err := st.AddProduct(ctx, bread)
	require.NoError(t, err)
	milk := &domain.Product{Name: "Lait", Price: 1.2, Stock: 1}
	_, err = st.AddProduct(ctx, milk)
	require.NoError(t, err)

	// second line exceeds stock, the whole sale rolls back
	_, err = st.CommitSale(ctx, &domain.Sale{
		UserID: 1,
		Items: domain.SaleItems{
			{ProductID: bread.ID, Name: "Pain", Price: 0.5, Quantity: 2},
			{ProductID: milk.ID, Name: "Lait", Price: 1.2, Quantity: 3},
		},
		Total:         4.6,
		PaymentMethod: domain.PaymentCash,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	unchanged, err := st.GetProduct(ctx, bread.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, unchanged.Stock)

	sales, err := st.GetSales(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, sales)

	// a valid sale lands and decrements
	_, err = st.CommitSale(ctx, &domain.Sale{
		UserID: 1,
		Items: domain.SaleItems{
			{ProductID: bread.ID, Name: "Pain", Price: 0.5, Quantity: 2},
		},
		Total:         1.0,
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)

	updated, err := st.GetProduct(ctx, bread.ID)
	require.NoError(t, err)
	assert.Equal(t, 98, updated.Stock)
}

func TestCommitSaleGuardHoldsAtWriteTime(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	bread := &domain.Product{Name: "Pain", Price: 0.5, Stock: 3}
	_, err := st.AddProduct(ctx, bread)
	require.NoError(t, err)

	line := domain.SaleItems{{ProductID: bread.ID, Name: "Pain", Price: 0.5, Quantity: 2}}

	_, err = st.CommitSale(ctx, &domain.Sale{UserID: 1, Items: line, Total: 1.0,
		PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)

	// the guard sees the decremented value, not a stale read
	_, err = st.CommitSale(ctx, &domain.Sale{UserID: 1, Items: line, Total: 1.0,
		PaymentMethod: domain.PaymentCash})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	remaining, err := st.GetProduct(ctx, bread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining.Stock)
}

func TestGetSalesRange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old := &domain.Sale{UserID: 1, Total: 1.0, PaymentMethod: domain.PaymentCash,
		CreatedAt: time.Now().Add(-48 * time.Hour)}
	_, err := st.AddSale(ctx, old)
	require.NoError(t, err)

	recent := &domain.Sale{UserID: 1, Total: 2.0, PaymentMethod: domain.PaymentCard}
	_, err = st.AddSale(ctx, recent)
	require.NoError(t, err)

	// zero bounds default to epoch..now
	all, err := st.GetSales(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	lastDay, err := st.GetSales(ctx, time.Now().Add(-24*time.Hour), time.Time{})
	require.NoError(t, err)
	require.Len(t, lastDay, 1)
	assert.Equal(t, 2.0, lastDay[0].Total)
}

func TestSyncQueueLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.AddToSyncQueue(ctx, domain.ActionCreateSale, `{"total":1}`)
	require.NoError(t, err)
	second, err := st.AddToSyncQueue(ctx, domain.ActionCreateSale, `{"total":2}`)
	require.NoError(t, err)

	pending, err := st.GetSyncQueue(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID)
	assert.Equal(t, second, pending[1].ID)
	assert.Equal(t, domain.SyncPending, pending[0].Status)

	require.NoError(t, st.UpdateSyncStatus(ctx, first, domain.SyncSynced))

	pending, err = st.GetSyncQueue(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second, pending[0].ID)
}

func TestUpdateSyncStatusNotFound(t *testing.T) {
	st := newTestStore(t)
	err := st.UpdateSyncStatus(context.Background(), 99, domain.SyncSynced)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportProductsCSVSkipsDuplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.AddProduct(ctx, &domain.Product{Name: "Pain", SKU: strptr("PAIN001"), Price: 0.5})
	require.NoError(t, err)

	csv := "name,sku,barcode,price,stock,min_stock\n" +
		"Pain,PAIN001,,0.5,100,10\n" +
		"Lait,LAIT001,,1.2,50,5\n"
	imported, err := st.ImportProductsCSV(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	rows, err := st.GetProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestUpsertLocalUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := &domain.LocalUser{Email: "test@mgcaisse.tn", SerialHash: "h1", Name: "Test", Status: "enabled"}
	require.NoError(t, st.UpsertLocalUser(ctx, user))
	require.NotZero(t, user.ID)

	again := &domain.LocalUser{Email: "test@mgcaisse.tn", SerialHash: "h2", Name: "Test", Status: "enabled"}
	require.NoError(t, st.UpsertLocalUser(ctx, again))
	assert.Equal(t, user.ID, again.ID)

	loaded, err := st.GetLocalUserByEmail(ctx, "test@mgcaisse.tn")
	require.NoError(t, err)
	assert.Equal(t, "h2", loaded.SerialHash)
}
