package domain

import (
	"database/sql/driver"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Payment methods accepted at the register. PaymentWallet covers mobile
// wallet payments (D17 and the like).
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentWallet = "mobile-wallet"
)

// ValidPayment reports whether method is one of the accepted payment kinds.
func ValidPayment(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentWallet:
		return true
	}
	return false
}

// SaleItem is one line of a sale. Name and price are snapshots taken at sale
// time, later product edits never rewrite history.
type SaleItem struct {
	ProductID int64   `json:"product_id,string" mapstructure:"product_id"`
	Name      string  `json:"name" mapstructure:"name"`
	Price     float64 `json:"price" mapstructure:"price"`
	Quantity  int     `json:"quantity" mapstructure:"quantity"`
}

// SaleItems is stored as a JSON column.
type SaleItems []SaleItem

func (s SaleItems) Value() (driver.Value, error) {
	return jsoniter.MarshalToString(s)
}

func (s *SaleItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return jsoniter.Unmarshal(v, s)
	case string:
		return jsoniter.UnmarshalFromString(v, s)
	case nil:
		*s = nil
		return nil
	}
	return errors.Errorf("unsupported sale items column type %T", src)
}

// Sale is an append-only record of a completed transaction.
type Sale struct {
	ID            int64     `json:"id,string" form:"id"`
	UserID        int64     `gorm:"index" json:"user_id,string" form:"user_id"`
	Items         SaleItems `gorm:"type:text" json:"items"`
	Total         float64   `json:"total" form:"total"`
	PaymentMethod string    `json:"payment_method" form:"payment_method"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName Specify table name
func (Sale) TableName() string {
	return "pos_sale"
}
