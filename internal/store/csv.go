package store

import (
	"context"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgcaisse/caisse/internal/domain"
)

// ImportProductsCSV loads catalog rows from a CSV file. Rows colliding with
// an existing SKU or barcode are skipped and logged, the rest are created.
// Returns the number of products imported.
func (s *GormStore) ImportProductsCSV(ctx context.Context, r io.Reader) (int, error) {
	var rows []*domain.ProductCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, errors.Wrap(err, "parse catalog csv")
	}

	imported := 0
	for _, row := range rows {
		product := &domain.Product{
			Name:     row.Name,
			Price:    row.Price,
			Stock:    row.Stock,
			MinStock: row.MinStock,
		}
		if row.SKU != "" {
			sku := row.SKU
			product.SKU = &sku
		}
		if row.Barcode != "" {
			barcode := row.Barcode
			product.Barcode = &barcode
		}

		if _, err := s.AddProduct(ctx, product); err != nil {
			if errors.Is(err, ErrConstraintViolation) {
				zap.S().Warnf("catalog import skipped row %s: %s", row.Name, err)
				continue
			}
			return imported, err
		}
		imported++
	}
	return imported, nil
}

// ExportProductsCSV writes the non-deleted catalog as CSV.
func (s *GormStore) ExportProductsCSV(ctx context.Context, w io.Writer) error {
	var products []domain.Product
	if err := s.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return wrapDBErr(err, "export catalog")
	}

	rows := make([]*domain.ProductCSV, 0, len(products))
	for _, p := range products {
		row := &domain.ProductCSV{
			Name:     p.Name,
			Price:    p.Price,
			Stock:    p.Stock,
			MinStock: p.MinStock,
		}
		if p.SKU != nil {
			row.SKU = *p.SKU
		}
		if p.Barcode != nil {
			row.Barcode = *p.Barcode
		}
		rows = append(rows, row)
	}
	return errors.Wrap(gocsv.Marshal(rows, w), "write catalog csv")
}
