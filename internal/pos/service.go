package pos

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/internal/store"
	"github.com/mgcaisse/caisse/pkg/common"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidPayment = errors.New("unknown payment method")
	ErrNoSession      = errors.New("no operator signed in")
)

// SaleService completes sales against the local store. When the register is
// offline the sale is additionally queued for replay.
type SaleService struct {
	store  store.Store
	online func() bool
}

// NewSaleService wires the store and a connectivity probe (typically
// ConnectivityMonitor.IsOnline).
func NewSaleService(st store.Store, online func() bool) *SaleService {
	return &SaleService{store: st, online: online}
}

// ProcessSale validates the cart, persists the immutable sale with its stock
// decrements in one transaction and clears the cart. An over-stock line
// rejects the whole sale with nothing written.
func (s *SaleService) ProcessSale(ctx context.Context, state *AppState, method string) (*domain.Sale, error) {
	if !domain.ValidPayment(method) {
		return nil, errors.Wrap(ErrInvalidPayment, method)
	}
	user := state.User()
	if user == nil {
		return nil, ErrNoSession
	}
	cart := state.Cart()
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	sale := &domain.Sale{
		UserID:        user.ID,
		Items:         cart,
		Total:         totalOf(cart),
		PaymentMethod: method,
	}
	if _, err := s.store.CommitSale(ctx, sale); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			return nil, errors.Wrap(ErrInsufficientStock, err.Error())
		}
		return nil, err
	}

	if !s.online() {
		payload, err := jsoniter.MarshalToString(sale)
		if err != nil {
			return nil, errors.Wrap(err, "encode sale payload")
		}
		if _, err := s.store.AddToSyncQueue(ctx, domain.ActionCreateSale, payload); err != nil {
			return nil, err
		}
		zap.S().Infof("offline sale %d queued for sync", sale.ID)
	}

	state.ClearCart()
	return sale, nil
}

func totalOf(items []domain.SaleItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return common.RoundCurrency(total)
}
