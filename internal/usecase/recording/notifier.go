package recording

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
)

// StatusKey is where the live session status is cached
const StatusKey = "meetrec:session:current"

// Notifier fans recording events out to every publisher and mirrors the
// live status into a StatusStore. Failures are logged only.
type Notifier struct {
	publishers []repositories.EventPublisher
	status     repositories.StatusStore
	statusTTL  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotifier creates a notifier. status may be nil.
func NewNotifier(status repositories.StatusStore, statusTTL time.Duration, logger *zap.Logger, publishers ...repositories.EventPublisher) *Notifier {
	return &Notifier{
		publishers: publishers,
		status:     status,
		statusTTL:  statusTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// AddPublisher registers another event publisher
func (n *Notifier) AddPublisher(p repositories.EventPublisher) {
	n.publishers = append(n.publishers, p)
}

// Publish sends event to every publisher
func (n *Notifier) Publish(ctx context.Context, event entities.RecordingEvent) {
	if n == nil {
		return
	}
	for _, p := range n.publishers {
		if err := p.Publish(ctx, event); err != nil && n.logger != nil {
			n.logger.Warn("⚠️ Failed to publish event",
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
		}
	}
}

// StatusChanged publishes a recording-status event and caches stats
func (n *Notifier) StatusChanged(ctx context.Context, meetingID string, stats SessionStats, deviceType *entities.DeviceType) {
	if n == nil {
		return
	}
	payload := entities.StatusChanged{Status: string(stats.Status), DeviceType: deviceType}
	n.Publish(ctx, entities.NewRecordingEvent(entities.EventRecordingStatus, meetingID, payload, n.now()))

	if n.status == nil {
		return
	}
	data, err := json.Marshal(struct {
		MeetingID string       `json:"meeting_id"`
		Stats     SessionStats `json:"stats"`
	}{meetingID, stats})
	if err != nil {
		return
	}
	if err := n.status.SetStatus(ctx, StatusKey, string(data), n.statusTTL); err != nil && n.logger != nil {
		n.logger.Warn("⚠️ Failed to cache session status", zap.Error(err))
	}
}

// DeviceChanged publishes a device-event
func (n *Notifier) DeviceChanged(ctx context.Context, meetingID string, ev entities.DeviceEvent) {
	if n == nil {
		return
	}
	n.Publish(ctx, entities.NewRecordingEvent(entities.EventDeviceChanged, meetingID, ev, n.now()))
}

// TranscriptUpdated publishes a transcript-updated event
func (n *Notifier) TranscriptUpdated(ctx context.Context, meetingID string, seg entities.TranscriptSegment) {
	if n == nil {
		return
	}
	n.Publish(ctx, entities.NewRecordingEvent(entities.EventTranscriptUpdate, meetingID, seg, n.now()))
}

// OnRecordingSaved publishes recording-saved, so a Notifier is a SavedListener
func (n *Notifier) OnRecordingSaved(ctx context.Context, saved entities.RecordingSaved) error {
	n.Publish(ctx, entities.NewRecordingEvent(entities.EventRecordingSaved, saved.MeetingID, saved, n.now()))
	return nil
}

// CachedStatus reads the cached status JSON, if any
func (n *Notifier) CachedStatus(ctx context.Context) (string, bool, error) {
	if n == nil || n.status == nil {
		return "", false, nil
	}
	return n.status.GetStatus(ctx, StatusKey)
}
