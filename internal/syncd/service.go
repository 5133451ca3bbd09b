package syncd

import (
	"context"
	"sync/atomic"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/internal/store"
	"github.com/mgcaisse/caisse/pkg/metrics"
)

// Connectivity transition events published on the application bus.
const (
	EventNetworkUp   = "network.up"
	EventNetworkDown = "network.down"
)

// SyncService drains the pending-operation queue when connectivity returns.
// One connectivity-restore transition triggers exactly one drain pass; each
// pending entry gets one delivery attempt per pass and stays pending on
// failure for the next transition.
type SyncService struct {
	store    store.Store
	deliver  Deliverer
	bus      EventBus.Bus
	draining atomic.Bool
	onUp     func()
}

func NewSyncService(st store.Store, deliver Deliverer, bus EventBus.Bus) *SyncService {
	return &SyncService{store: st, deliver: deliver, bus: bus}
}

// Start subscribes the drain pass to connectivity-restore events.
func (s *SyncService) Start(ctx context.Context) error {
	s.onUp = func() {
		s.Drain(ctx)
	}
	return s.bus.SubscribeAsync(EventNetworkUp, s.onUp, false)
}

func (s *SyncService) Stop() {
	if s.onUp != nil {
		_ = s.bus.Unsubscribe(EventNetworkUp, s.onUp)
	}
}

// Drain processes pending entries in creation order. Reentrancy is guarded:
// a transition arriving mid-drain is dropped rather than double-processing
// the same entries.
func (s *SyncService) Drain(ctx context.Context) {
	if !s.draining.CompareAndSwap(false, true) {
		zap.S().Debug("sync drain already in progress, skipping trigger")
		return
	}
	defer s.draining.Store(false)

	pending, err := s.store.GetSyncQueue(ctx)
	if err != nil {
		zap.S().Errorf("failed to read sync queue: %s", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	zap.S().Infof("draining sync queue, %d pending entries", len(pending))

	synced := 0
	for _, entry := range pending {
		if err := s.deliver.Deliver(ctx, entry); err != nil {
			// Left pending for the next connectivity-restore trigger.
			zap.S().Warnf("delivery failed for entry %d (%s): %s", entry.ID, entry.Action, err)
			continue
		}
		if err := s.store.UpdateSyncStatus(ctx, entry.ID, domain.SyncSynced); err != nil {
			zap.S().Errorf("failed to mark entry %d synced: %s", entry.ID, err)
			continue
		}
		synced++
	}

	metrics.SetGauge("sync_queue_pending", int64(len(pending)-synced))
	zap.S().Infof("sync drain finished, %d/%d delivered", synced, len(pending))
}
