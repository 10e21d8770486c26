package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	dto "github.com/johnquangdev/meeting-recorder/internal/adapter/dto/recording"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	recordingUsecase "github.com/johnquangdev/meeting-recorder/internal/usecase/recording"
)

const (
	defaultMeetingsWindow = 30 * 24 * time.Hour
	defaultMeetingsLimit  = 50
)

// Recording handles the recording control endpoints
type Recording struct {
	service  recordingUsecase.Service
	meetings repositories.MeetingRepository
	logger   *zap.Logger
}

// NewRecordingHandler creates a new recording handler. meetings may be nil
// when the meeting index is disabled.
func NewRecordingHandler(service recordingUsecase.Service, meetings repositories.MeetingRepository, logger *zap.Logger) *Recording {
	return &Recording{
		service:  service,
		meetings: meetings,
		logger:   logger,
	}
}

// Start handles POST /recordings/start
// @Summary      Start a recording
// @Description  Starts capturing the microphone and, when available, system audio. Empty device names use the platform defaults.
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      recording.StartRecordingRequest  true  "Start request"
// @Success      200      {object}  map[string]interface{}  "Session status"
// @Failure      400      {object}  map[string]interface{}  "Invalid request"
// @Failure      409      {object}  map[string]interface{}  "Already recording"
// @Failure      503      {object}  map[string]interface{}  "Device unavailable"
// @Router       /recordings/start [post]
func (h *Recording) Start(c echo.Context) error {
	var req dto.StartRecordingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	if req.MeetingName != "" {
		h.service.SetMeetingName(req.MeetingName)
	}
	if err := h.service.StartRecordingWithDevices(c.Request().Context(), req.Microphone, req.SystemAudio); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, h.service.Stats())
}

// Stop handles POST /recordings/stop
// @Summary      Stop and save the recording
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      recording.StopRecordingRequest  false  "Stop request"
// @Success      200      {object}  map[string]interface{}  "Saved meeting"
// @Failure      404      {object}  map[string]interface{}  "No active session"
// @Failure      500      {object}  map[string]interface{}  "Merge or save failed"
// @Router       /recordings/stop [post]
func (h *Recording) Stop(c echo.Context) error {
	var req dto.StopRecordingRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return HandleError(h.logger, c, err)
		}
	}

	ctx := c.Request().Context()
	var (
		res *recordingUsecase.SaveResult
		err error
	)
	if req.ForceFlush {
		res, err = h.service.StopRecordingWithFlush(ctx)
	} else {
		res, err = h.service.StopRecording(ctx)
	}
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	// auto-save disabled
	if res == nil {
		return HandleSuccess(h.logger, c, map[string]interface{}{"saved": false})
	}
	return HandleSuccess(h.logger, c, res)
}

// Pause handles POST /recordings/pause
// @Summary      Pause the recording
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}  "Session status"
// @Failure      409  {object}  map[string]interface{}  "Invalid state"
// @Router       /recordings/pause [post]
func (h *Recording) Pause(c echo.Context) error {
	if err := h.service.PauseRecording(c.Request().Context()); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, h.service.Stats())
}

// Resume handles POST /recordings/resume
// @Summary      Resume a paused recording
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}  "Session status"
// @Failure      409  {object}  map[string]interface{}  "Invalid state"
// @Router       /recordings/resume [post]
func (h *Recording) Resume(c echo.Context) error {
	if err := h.service.ResumeRecording(c.Request().Context()); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, h.service.Stats())
}

// Status handles GET /recordings/status
// @Summary      Current session status
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}  "Session status"
// @Router       /recordings/status [get]
func (h *Recording) Status(c echo.Context) error {
	return HandleSuccess(h.logger, c, h.service.Stats())
}

// AddTranscript handles POST /recordings/transcripts
// @Summary      Upsert a transcript segment
// @Description  Segments are keyed by sequence_id; posting the same sequence_id again replaces the segment.
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      recording.TranscriptSegmentRequest  true  "Segment"
// @Success      200      {object}  map[string]interface{}  "Stored segment"
// @Failure      400      {object}  map[string]interface{}  "Invalid segment"
// @Failure      404      {object}  map[string]interface{}  "No active session"
// @Router       /recordings/transcripts [post]
func (h *Recording) AddTranscript(c echo.Context) error {
	var req dto.TranscriptSegmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	seg := toSegment(req)
	if err := h.service.AddTranscriptSegment(c.Request().Context(), seg); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, seg)
}

// Transcripts handles GET /recordings/transcripts
// @Summary      Transcript segments of the current session
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  recording.TranscriptsResponse
// @Router       /recordings/transcripts [get]
func (h *Recording) Transcripts(c echo.Context) error {
	segments := h.service.GetTranscriptSegments()
	if segments == nil {
		segments = []entities.TranscriptSegment{}
	}
	return HandleSuccess(h.logger, c, dto.TranscriptsResponse{
		Segments:      segments,
		TotalSegments: len(segments),
	})
}

// Retranscribe handles POST /recordings/retranscribe
// @Summary      Re-run transcription on the saved audio
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  recording.TranscriptsResponse
// @Failure      409  {object}  map[string]interface{}  "Recording not saved yet"
// @Failure      500  {object}  map[string]interface{}  "No engine configured or transcription failed"
// @Router       /recordings/retranscribe [post]
func (h *Recording) Retranscribe(c echo.Context) error {
	segments, err := h.service.Retranscribe(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.TranscriptsResponse{
		Segments:      segments,
		TotalSegments: len(segments),
	})
}

// Reconnect handles POST /recordings/reconnect
// @Summary      Reconnect a device leg now
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      recording.ReconnectRequest  true  "Device to reconnect"
// @Success      200      {object}  map[string]interface{}  "Session status"
// @Failure      503      {object}  map[string]interface{}  "Device still unavailable"
// @Router       /recordings/reconnect [post]
func (h *Recording) Reconnect(c echo.Context) error {
	var req dto.ReconnectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	deviceType := entities.DeviceType(req.DeviceType)
	if err := h.service.HandleDeviceReconnect(c.Request().Context(), req.DeviceName, deviceType); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, h.service.Stats())
}

// ListMeetings handles GET /meetings
// @Summary      Recently recorded meetings
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        since_hours  query     int  false  "Look-back window in hours (default 720)"
// @Param        limit        query     int  false  "Maximum rows (default 50)"
// @Success      200          {object}  recording.MeetingsResponse
// @Failure      500          {object}  map[string]interface{}  "Meeting index disabled or query failed"
// @Router       /meetings [get]
func (h *Recording) ListMeetings(c echo.Context) error {
	if h.meetings == nil {
		return HandleError(h.logger, c, appErrors.ErrConfiguration("meeting index is disabled", nil))
	}

	var req dto.ListMeetingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	window := defaultMeetingsWindow
	if req.SinceHours > 0 {
		window = time.Duration(req.SinceHours) * time.Hour
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultMeetingsLimit
	}

	meetings, err := h.meetings.ListRecent(c.Request().Context(), time.Now().UTC().Add(-window), limit)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if meetings == nil {
		meetings = []*entities.MeetingRecord{}
	}
	return HandleSuccess(h.logger, c, dto.MeetingsResponse{Meetings: meetings, Total: len(meetings)})
}

func toSegment(req dto.TranscriptSegmentRequest) entities.TranscriptSegment {
	id := req.ID
	if id == "" {
		id = "seg_" + time.Now().UTC().Format("20060102150405.000000")
	}
	return entities.TranscriptSegment{
		ID:             id,
		Text:           req.Text,
		AudioStartTime: req.AudioStartTime,
		AudioEndTime:   req.AudioEndTime,
		Duration:       req.AudioEndTime - req.AudioStartTime,
		DisplayTime:    entities.FormatDisplayTime(req.AudioStartTime),
		Confidence:     req.Confidence,
		SequenceID:     req.SequenceID,
	}
}
