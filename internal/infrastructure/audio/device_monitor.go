package audio

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/metrics"
)

const (
	DefaultMonitorInterval = 2 * time.Second
	monitorQueueSize       = 32
)

type watchedDevice struct {
	name    string
	present bool
}

// DeviceMonitor polls the device list and reports when an assigned device
// vanishes or comes back under the same name. Watching is best effort:
// lister failures are logged and the previous presence is kept.
type DeviceMonitor struct {
	lister   repositories.DeviceLister
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	watched map[entities.DeviceType]*watchedDevice
	events  chan entities.DeviceEvent
	dropped int
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewDeviceMonitor(lister repositories.DeviceLister, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *DeviceMonitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &DeviceMonitor{
		lister:   lister,
		interval: interval,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		watched:  make(map[entities.DeviceType]*watchedDevice),
		events:   make(chan entities.DeviceEvent, monitorQueueSize),
	}
}

// Start begins watching the given devices. Either may be nil.
// Calling Start on a running monitor restarts it with the new devices.
func (m *DeviceMonitor) Start(ctx context.Context, microphone, system *entities.AudioDevice) {
	m.Stop()

	m.mu.Lock()
	m.watched = make(map[entities.DeviceType]*watchedDevice)
	if microphone != nil {
		m.watched[entities.DeviceTypeMicrophone] = &watchedDevice{name: microphone.Name, present: true}
	}
	if system != nil {
		m.watched[entities.DeviceTypeSystem] = &watchedDevice{name: system.Name, present: true}
	}
	watchCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.run(watchCtx, done)

	if m.logger != nil {
		m.logger.Info("👀 Device monitor started", zap.Duration("interval", m.interval))
	}
}

func (m *DeviceMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce lists devices once and emits events for presence changes
func (m *DeviceMonitor) CheckOnce(ctx context.Context) {
	devices, err := m.lister.ListDevices(ctx)
	if err != nil {
		if m.logger != nil && ctx.Err() == nil {
			m.logger.Warn("⚠️ Device enumeration failed", zap.Error(err))
		}
		return
	}

	names := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		names[d.Name] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for deviceType, w := range m.watched {
		_, present := names[w.name]
		if present == w.present {
			continue
		}
		w.present = present

		kind := entities.DeviceEventReconnected
		if !present {
			kind = entities.DeviceEventDisconnected
		}
		m.emitLocked(entities.DeviceEvent{
			Kind:       kind,
			DeviceName: w.name,
			DeviceType: deviceType,
			At:         m.now(),
		})
	}
}

// emitLocked queues ev, discarding the oldest queued event when full
func (m *DeviceMonitor) emitLocked(ev entities.DeviceEvent) {
	m.metrics.DeviceEvent(string(ev.Kind), string(ev.DeviceType))
	if m.logger != nil {
		m.logger.Info("📱 Device event",
			zap.String("kind", string(ev.Kind)),
			zap.String("device", ev.DeviceName),
			zap.String("device_type", string(ev.DeviceType)),
		)
	}

	for {
		select {
		case m.events <- ev:
			return
		default:
		}
		select {
		case <-m.events:
			m.dropped++
		default:
		}
	}
}

// Poll returns the next queued event without blocking
func (m *DeviceMonitor) Poll() (entities.DeviceEvent, bool) {
	select {
	case ev := <-m.events:
		return ev, true
	default:
		return entities.DeviceEvent{}, false
	}
}

// Events exposes the queue for callers that prefer to block
func (m *DeviceMonitor) Events() <-chan entities.DeviceEvent {
	return m.events
}

// UpdateDevice swaps the watched name for a leg after a reconnect
func (m *DeviceMonitor) UpdateDevice(deviceType entities.DeviceType, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched[deviceType] = &watchedDevice{name: name, present: true}
}

// Dropped returns how many events were discarded on overflow
func (m *DeviceMonitor) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Stop halts the watcher and waits for it to exit. Safe to call repeatedly.
func (m *DeviceMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if m.logger != nil {
		m.logger.Info("🛑 Device monitor stopped")
	}
}
