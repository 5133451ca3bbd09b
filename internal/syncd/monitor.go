package syncd

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

// ConnectivityMonitor probes the remote endpoint on a fixed cadence and
// publishes up/down transitions on the application bus. Only transitions are
// published, a stable state stays quiet.
type ConnectivityMonitor struct {
	endpoint string
	interval time.Duration
	bus      EventBus.Bus
	online   atomic.Bool
	ticker   *time.Ticker
	stopChan chan struct{}
}

func NewConnectivityMonitor(endpoint string, interval time.Duration, bus EventBus.Bus) *ConnectivityMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ConnectivityMonitor{
		endpoint: endpoint,
		interval: interval,
		bus:      bus,
		stopChan: make(chan struct{}),
	}
}

// IsOnline reports the last observed connectivity state.
func (m *ConnectivityMonitor) IsOnline() bool {
	return m.online.Load()
}

func (m *ConnectivityMonitor) Start(ctx context.Context) {
	m.ticker = time.NewTicker(m.interval)
	go m.probeLoop(ctx)
	zap.S().Infof("connectivity monitor started, probing every %s", m.interval)
}

func (m *ConnectivityMonitor) Stop() {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	close(m.stopChan)
}

func (m *ConnectivityMonitor) probeLoop(ctx context.Context) {
	m.probe(ctx)
	for {
		select {
		case <-m.ticker.C:
			m.probe(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *ConnectivityMonitor) probe(ctx context.Context) {
	var code int
	err := gout.HEAD(m.endpoint).
		WithContext(ctx).
		SetTimeout(5 * time.Second).
		Code(&code).
		Do()
	up := err == nil

	if up == m.online.Load() {
		return
	}
	m.online.Store(up)
	if up {
		zap.S().Info("connectivity restored")
		m.bus.Publish(EventNetworkUp)
	} else {
		zap.S().Warn("connectivity lost, entering offline mode")
		m.bus.Publish(EventNetworkDown)
	}
}

// ForceOnline seeds the state without probing (used in tests).
func (m *ConnectivityMonitor) ForceOnline(up bool) {
	m.online.Store(up)
}
