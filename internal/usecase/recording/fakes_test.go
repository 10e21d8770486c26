package recording

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/johnquangdev/meeting-recorder/internal/adapter/repository"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

const testSampleRate = 100

type stubPrefs struct {
	mu    sync.Mutex
	prefs config.RecordingPreferences
}

func newStubPrefs(folder string) *stubPrefs {
	return &stubPrefs{prefs: config.RecordingPreferences{
		SaveFolder: folder,
		AutoSave:   true,
		FileFormat: "wav",
	}}
}

func (p *stubPrefs) Load() (config.RecordingPreferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs, nil
}

func (p *stubPrefs) setAutoSave(v bool) {
	p.mu.Lock()
	p.prefs.AutoSave = v
	p.mu.Unlock()
}

type fakeLister struct {
	mu      sync.Mutex
	devices []entities.AudioDevice
}

func (l *fakeLister) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entities.AudioDevice(nil), l.devices...), nil
}

func (l *fakeLister) set(devices ...entities.AudioDevice) {
	l.mu.Lock()
	l.devices = devices
	l.mu.Unlock()
}

type streamCall struct {
	op         string
	device     string
	deviceType entities.DeviceType
}

type fakeStreams struct {
	mu       sync.Mutex
	active   map[entities.DeviceType]string
	calls    []streamCall
	startErr error
}

func newFakeStreams() *fakeStreams {
	return &fakeStreams{active: make(map[entities.DeviceType]string)}
}

func (s *fakeStreams) StartStream(ctx context.Context, device entities.AudioDevice, deviceType entities.DeviceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, streamCall{op: "start", device: device.Name, deviceType: deviceType})
	if s.startErr != nil {
		return s.startErr
	}
	s.active[deviceType] = device.Name
	return nil
}

func (s *fakeStreams) StopStream(ctx context.Context, deviceType entities.DeviceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, streamCall{op: "stop", deviceType: deviceType})
	delete(s.active, deviceType)
	return nil
}

func (s *fakeStreams) StopAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, streamCall{op: "stop_all"})
	s.active = make(map[entities.DeviceType]string)
	return nil
}

func (s *fakeStreams) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *fakeStreams) starts(deviceType entities.DeviceType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.op == "start" && c.deviceType == deviceType {
			n++
		}
	}
	return n
}

func (s *fakeStreams) activeDevice(deviceType entities.DeviceType) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.active[deviceType]
	return name, ok
}

// fakePipeline forwards pushed samples to the sink it was started with
type fakePipeline struct {
	mu       sync.Mutex
	sink     repositories.ChunkSink
	flushed  bool
	stopped  bool
	startErr error
}

func (p *fakePipeline) Start(ctx context.Context, sink repositories.ChunkSink, sampleRate uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.sink = sink
	return nil
}

func (p *fakePipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	return nil
}

func (p *fakePipeline) FlushAndStop(ctx context.Context) error {
	p.mu.Lock()
	p.flushed = true
	p.stopped = true
	p.mu.Unlock()
	return nil
}

func (p *fakePipeline) push(t *testing.T, n int) bool {
	t.Helper()
	return p.pushFrom(t, n, entities.DeviceTypeMicrophone)
}

func (p *fakePipeline) pushFrom(t *testing.T, n int, deviceType entities.DeviceType) bool {
	t.Helper()
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()
	if sink == nil {
		t.Fatal("pipeline not started")
	}
	return sink.Send(entities.NewAudioChunk(make([]float32, n), testSampleRate, deviceType))
}

type recordedEvents struct {
	mu     sync.Mutex
	events []entities.RecordingEvent
}

func (r *recordedEvents) Publish(ctx context.Context, event entities.RecordingEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordedEvents) ofType(t entities.RecordingEventType) []entities.RecordingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.RecordingEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeEngine struct {
	segments []entities.TranscriptSegment
	paths    []string
	closed   bool
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) TranscribeFile(ctx context.Context, path string) ([]entities.TranscriptSegment, error) {
	e.paths = append(e.paths, path)
	return e.segments, nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

func testSaverConfig() SaverConfig {
	return SaverConfig{
		SampleRate:        testSampleRate,
		CheckpointSeconds: 1,
		DrainTimeout:      2 * time.Second,
	}
}

func newTestSaver(t *testing.T, prefs *stubPrefs) *RecordingSaver {
	t.Helper()
	return NewRecordingSaver(testSaverConfig(), repository.NewSessionRepository(), prefs, nil, nil)
}

var (
	testMic     = entities.AudioDevice{Name: "USB Mic", Kind: entities.DeviceKindInput, IsDefault: true}
	testSpeaker = entities.AudioDevice{Name: "Speakers", Kind: entities.DeviceKindOutput, IsDefault: true}
	testMonitor = entities.AudioDevice{Name: "Speakers.monitor", Kind: entities.DeviceKindInput}
)

type managerFixture struct {
	manager  *RecordingManager
	lister   *fakeLister
	streams  *fakeStreams
	pipeline *fakePipeline
	prefs    *stubPrefs
	events   *recordedEvents
	engine   *fakeEngine
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	f := &managerFixture{
		lister:   &fakeLister{devices: []entities.AudioDevice{testMic, testSpeaker, testMonitor}},
		streams:  newFakeStreams(),
		pipeline: &fakePipeline{},
		prefs:    newStubPrefs(t.TempDir()),
		events:   &recordedEvents{},
		engine:   &fakeEngine{},
	}

	cfg := ManagerConfig{
		Saver:            testSaverConfig(),
		MonitorInterval:  time.Hour,
		ReconnectTimeout: time.Second,
	}
	deps := Dependencies{
		Lister:   f.lister,
		Streams:  f.streams,
		Pipeline: f.pipeline,
		Selector: audio.NewDeviceSelector("linux"),
		Store:    repository.NewSessionRepository(),
		Prefs:    f.prefs,
		Engine:   f.engine,
		Notifier: NewNotifier(nil, 0, nil, f.events),
	}
	f.manager = NewRecordingManager(cfg, deps, nil, nil)
	t.Cleanup(func() { f.manager.CleanupWithoutSave(context.Background()) })
	return f
}

func segment(seq uint64, text string, start, end float64) entities.TranscriptSegment {
	return entities.TranscriptSegment{
		ID:             fmt.Sprintf("seg-%d", seq),
		Text:           text,
		AudioStartTime: start,
		AudioEndTime:   end,
		Duration:       end - start,
		DisplayTime:    entities.FormatDisplayTime(start),
		Confidence:     0.9,
		SequenceID:     seq,
	}
}
