package capture

import (
	"context"
	"sync"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
)

const (
	// mixed chunks are emitted in 100ms frames
	framesPerSecond = 10
	// a leg that falls this many frames behind is padded with silence
	maxLagFrames = 20
)

// Mixer sums the active capture legs into mono chunks. It waits for every
// active leg to fill a frame so the legs stay aligned.
type Mixer struct {
	mu         sync.Mutex
	sink       repositories.ChunkSink
	sampleRate uint32
	frame      int
	legs       map[entities.DeviceType][]float32
	running    bool
}

// NewMixer creates a stopped mixer
func NewMixer() *Mixer {
	return &Mixer{legs: make(map[entities.DeviceType][]float32)}
}

// Start begins forwarding mixed frames to sink
func (m *Mixer) Start(ctx context.Context, sink repositories.ChunkSink, sampleRate uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
	m.sampleRate = sampleRate
	m.frame = int(sampleRate) / framesPerSecond
	if m.frame == 0 {
		m.frame = 1
	}
	m.running = true
	for leg := range m.legs {
		m.legs[leg] = m.legs[leg][:0]
	}
	return nil
}

// Stop discards buffered audio
func (m *Mixer) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.sink = nil
	for leg := range m.legs {
		m.legs[leg] = nil
	}
	return nil
}

// FlushAndStop emits everything buffered, padding short legs with silence
func (m *Mixer) FlushAndStop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		for m.longestLocked() > 0 {
			m.emitLocked(min(m.frame, m.longestLocked()))
		}
	}
	m.running = false
	m.sink = nil
	return nil
}

// AddLeg makes the mixer wait for deviceType
func (m *Mixer) AddLeg(deviceType entities.DeviceType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.legs[deviceType]; !ok {
		m.legs[deviceType] = nil
	}
}

// RemoveLeg stops waiting for deviceType; its buffered samples are mixed first
func (m *Mixer) RemoveLeg(deviceType entities.DeviceType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.legs[deviceType]) > 0 && m.running {
		for len(m.legs[deviceType]) > 0 {
			m.emitLocked(min(m.frame, m.longestLocked()))
		}
	}
	delete(m.legs, deviceType)
	m.drainLocked()
}

// Push appends raw samples of one leg
func (m *Mixer) Push(deviceType entities.DeviceType, samples []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if _, ok := m.legs[deviceType]; !ok {
		return
	}
	m.legs[deviceType] = append(m.legs[deviceType], samples...)
	m.drainLocked()
}

// drainLocked emits whole frames while every leg has one, or while some leg lags too far
func (m *Mixer) drainLocked() {
	if !m.running || len(m.legs) == 0 {
		return
	}
	for {
		shortest, longest := m.shortestLocked(), m.longestLocked()
		if shortest >= m.frame || longest >= m.frame*maxLagFrames {
			m.emitLocked(m.frame)
			continue
		}
		return
	}
}

func (m *Mixer) emitLocked(n int) {
	mixed := make([]float32, n)
	for leg, buf := range m.legs {
		k := min(n, len(buf))
		for i := 0; i < k; i++ {
			mixed[i] += buf[i]
		}
		m.legs[leg] = buf[k:]
	}
	for i, v := range mixed {
		if v > 1 {
			mixed[i] = 1
		} else if v < -1 {
			mixed[i] = -1
		}
	}
	if m.sink != nil {
		m.sink.Send(entities.AudioChunk{Samples: mixed, SampleRate: m.sampleRate})
	}
}

func (m *Mixer) shortestLocked() int {
	shortest := -1
	for _, buf := range m.legs {
		if shortest < 0 || len(buf) < shortest {
			shortest = len(buf)
		}
	}
	return shortest
}

func (m *Mixer) longestLocked() int {
	longest := 0
	for _, buf := range m.legs {
		if len(buf) > longest {
			longest = len(buf)
		}
	}
	return longest
}
