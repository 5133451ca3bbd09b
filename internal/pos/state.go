package pos

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mgcaisse/caisse/internal/domain"
)

// ErrInsufficientStock the cart asks for more units than the shelf holds.
var ErrInsufficientStock = errors.New("insufficient stock")

// AppState holds the register's runtime state: the open cart and the signed
// in operator. It is created at startup, passed explicitly to the handlers
// that need it and reset at logout.
type AppState struct {
	mu   sync.Mutex
	cart []domain.SaleItem
	user *domain.LocalUser
}

func NewAppState() *AppState {
	return &AppState{}
}

func (s *AppState) SetUser(user *domain.LocalUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *AppState) User() *domain.LocalUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Reset clears cart and operator, the logout teardown.
func (s *AppState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.user = nil
}

// AddToCart puts qty units of a product in the cart, snapshotting name and
// price. The quantity already carted counts against available stock.
func (s *AppState) AddToCart(product *domain.Product, qty int) error {
	if qty < 1 {
		return errors.New("quantity must be at least 1")
	}
	if product.IsDeleted {
		return errors.New("product is no longer sold")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		if s.cart[i].ProductID == product.ID {
			if s.cart[i].Quantity+qty > product.Stock {
				return errors.Wrap(ErrInsufficientStock, product.Name)
			}
			s.cart[i].Quantity += qty
			return nil
		}
	}
	if qty > product.Stock {
		return errors.Wrap(ErrInsufficientStock, product.Name)
	}
	s.cart = append(s.cart, domain.SaleItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  qty,
	})
	return nil
}

func (s *AppState) RemoveFromCart(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			return
		}
	}
}

func (s *AppState) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
}

// Cart returns a copy of the current cart lines.
func (s *AppState) Cart() []domain.SaleItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SaleItem, len(s.cart))
	copy(out, s.cart)
	return out
}

// CartTotal is the 3-decimal sum of price times quantity over the cart.
func (s *AppState) CartTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.cart)
}
