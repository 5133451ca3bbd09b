package domain

import "time"

// Product is a catalog item sold at the register. SKU and barcode are
// optional but must be unique among non-deleted products. Products are never
// physically removed, IsDeleted marks them inactive.
type Product struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"index" json:"name" form:"name"`
	SKU       *string   `gorm:"index;column:sku" json:"sku" form:"sku"`
	Barcode   *string   `gorm:"index" json:"barcode" form:"barcode"`
	Price     float64   `json:"price" form:"price"`
	Stock     int       `json:"stock" form:"stock"`
	MinStock  int       `json:"min_stock" form:"min_stock"`
	IsDeleted bool      `gorm:"index" json:"is_deleted" form:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "pos_product"
}

// LowStock reports whether the product fell to or under its restock threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

// ProductPatch is a typed partial update. Nil fields are left untouched.
type ProductPatch struct {
	Name     *string  `json:"name"`
	SKU      *string  `json:"sku"`
	Barcode  *string  `json:"barcode"`
	Price    *float64 `json:"price"`
	Stock    *int     `json:"stock"`
	MinStock *int     `json:"min_stock"`
	Deleted  *bool    `json:"is_deleted"`
}

// ProductCSV is the import/export row shape for catalog files.
type ProductCSV struct {
	Name     string  `csv:"name"`
	SKU      string  `csv:"sku"`
	Barcode  string  `csv:"barcode"`
	Price    float64 `csv:"price"`
	Stock    int     `csv:"stock"`
	MinStock int     `csv:"min_stock"`
}
