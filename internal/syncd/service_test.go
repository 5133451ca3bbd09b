package syncd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/internal/store"
)

func newTestQueue(t *testing.T) store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(domain.Tables...))
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return store.NewGormStore(db)
}

// fakeDeliverer records deliveries and fails on demand.
type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []int64
	failing   bool
	block     chan struct{}
}

func (f *fakeDeliverer) Deliver(_ context.Context, entry domain.SyncQueueEntry) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("endpoint unreachable")
	}
	f.delivered = append(f.delivered, entry.ID)
	return nil
}

func (f *fakeDeliverer) seen() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.delivered...)
}

func TestDrainMarksEntriesSynced(t *testing.T) {
	st := newTestQueue(t)
	ctx := context.Background()

	first, err := st.AddToSyncQueue(ctx, domain.ActionCreateSale, `{"total":1}`)
	require.NoError(t, err)
	second, err := st.AddToSyncQueue(ctx, domain.ActionCreateSale, `{"total":2}`)
	require.NoError(t, err)

	deliverer := &fakeDeliverer{}
	svc := NewSyncService(st, deliverer, EventBus.New())
	svc.Drain(ctx)

	assert.Equal(t, []int64{first, second}, deliverer.seen())

	pending, err := st.GetSyncQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// a second drain has nothing left to deliver
	svc.Drain(ctx)
	assert.Len(t, deliverer.seen(), 2)
}

func TestDrainLeavesFailedEntriesPending(t *testing.T) {
	st := newTestQueue(t)
	ctx := context.Background()

	_, err := st.AddToSyncQueue(ctx, domain.ActionCreateSale, `{"total":1}`)
	require.NoError(t, err)

	deliverer := &fakeDeliverer{failing: true}
	svc := NewSyncService(st, deliverer, EventBus.New())
	svc.Drain(ctx)

	pending, err := st.GetSyncQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, domain.SyncPending, pending[0].Status)

	// once the endpoint recovers the entry goes through
	deliverer.mu.Lock()
	deliverer.failing = false
	deliverer.mu.Unlock()
	svc.Drain(ctx)

	pending, err = st.GetSyncQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainIsNotReentrant(t *testing.T) {
	st := newTestQueue(t)
	ctx := context.Background()

	_, err := st.AddToSyncQueue(ctx, domain.ActionCreateSale, `{"total":1}`)
	require.NoError(t, err)

	deliverer := &fakeDeliverer{block: make(chan struct{})}
	svc := NewSyncService(st, deliverer, EventBus.New())

	done := make(chan struct{})
	go func() {
		svc.Drain(ctx)
		close(done)
	}()

	// wait until the first drain holds the guard, then trigger again
	require.Eventually(t, func() bool { return svc.draining.Load() }, time.Second, time.Millisecond)
	svc.Drain(ctx)

	close(deliverer.block)
	<-done

	assert.Len(t, deliverer.seen(), 1)
}

func TestNetworkUpEventTriggersDrain(t *testing.T) {
	st := newTestQueue(t)
	ctx := context.Background()

	_, err := st.AddToSyncQueue(ctx, domain.ActionCreateSale, `{"total":1}`)
	require.NoError(t, err)

	bus := EventBus.New()
	deliverer := &fakeDeliverer{}
	svc := NewSyncService(st, deliverer, bus)
	require.NoError(t, svc.Start(ctx))

	bus.Publish(EventNetworkUp)
	bus.WaitAsync()

	assert.Len(t, deliverer.seen(), 1)
}

func TestRemoteDelivererPostsRebuiltSale(t *testing.T) {
	var got map[string]interface{}
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, jsoniter.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()

	sale := domain.Sale{
		ID:     101,
		UserID: 42,
		Items: domain.SaleItems{
			{ProductID: 7, Name: "Pain", Price: 0.5, Quantity: 2},
		},
		Total:         1.0,
		PaymentMethod: domain.PaymentCash,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	payload, err := jsoniter.MarshalToString(sale)
	require.NoError(t, err)

	d := NewRemoteDeliverer(remote.URL)
	err = d.Deliver(context.Background(), domain.SyncQueueEntry{
		ID:      1,
		Action:  domain.ActionCreateSale,
		Payload: payload,
	})
	require.NoError(t, err)

	require.Equal(t, domain.ActionCreateSale, got["action"])
	body, ok := got["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, domain.PaymentCash, body["payment_method"])
	assert.EqualValues(t, 1.0, body["total"])
}

func TestRemoteDelivererRejectedStatus(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer remote.Close()

	d := NewRemoteDeliverer(remote.URL)
	err := d.Deliver(context.Background(), domain.SyncQueueEntry{
		ID:      1,
		Action:  domain.ActionCreateSale,
		Payload: `{"total":1}`,
	})
	assert.Error(t, err)
}

func TestRemoteDelivererMalformedPayload(t *testing.T) {
	d := NewRemoteDeliverer("http://127.0.0.1:1")
	err := d.Deliver(context.Background(), domain.SyncQueueEntry{
		ID:      1,
		Action:  domain.ActionCreateSale,
		Payload: `{broken`,
	})
	assert.Error(t, err)
}

func TestConnectivityMonitorPublishesTransitions(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()

	bus := EventBus.New()
	var ups int64
	require.NoError(t, bus.Subscribe(EventNetworkUp, func() { atomic.AddInt64(&ups, 1) }))

	m := NewConnectivityMonitor(remote.URL, time.Hour, bus)
	assert.False(t, m.IsOnline())

	m.probe(context.Background())
	assert.True(t, m.IsOnline())
	assert.EqualValues(t, 1, atomic.LoadInt64(&ups))

	// stable state stays quiet
	m.probe(context.Background())
	assert.EqualValues(t, 1, atomic.LoadInt64(&ups))
}

func TestConnectivityMonitorDetectsLoss(t *testing.T) {
	bus := EventBus.New()
	var downs int64
	require.NoError(t, bus.Subscribe(EventNetworkDown, func() { atomic.AddInt64(&downs, 1) }))

	m := NewConnectivityMonitor("http://127.0.0.1:1", time.Hour, bus)
	m.ForceOnline(true)

	m.probe(context.Background())
	assert.False(t, m.IsOnline())
	assert.EqualValues(t, 1, atomic.LoadInt64(&downs))
}
