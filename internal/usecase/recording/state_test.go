package recording

import (
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func seconds(f *float64) float64 {
	if f == nil {
		return -1
	}
	return *f
}

func TestSessionState_Lifecycle(t *testing.T) {
	clock := newFakeClock()
	s := newSessionStateWithClock(clock.now)

	assert.Equal(t, StatusIdle, s.Status())
	assert.Nil(t, s.Duration())
	assert.Nil(t, s.ActiveDuration())

	require.NoError(t, s.StartRecording())
	assert.True(t, s.IsRecording())
	assert.True(t, s.IsActive())

	err := s.StartRecording()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorCode_ALREADY_RECORDING, appErrors.CodeOf(err))

	clock.advance(10 * time.Second)
	require.NoError(t, s.PauseRecording())
	assert.True(t, s.IsPaused())
	assert.False(t, s.IsRecording())

	clock.advance(4 * time.Second)
	assert.InDelta(t, 4.0, seconds(s.CurrentPauseDuration()), 1e-9)
	require.NoError(t, s.ResumeRecording())
	assert.Nil(t, s.CurrentPauseDuration())

	clock.advance(6 * time.Second)
	require.NoError(t, s.StopRecording())
	assert.Equal(t, StatusStopped, s.Status())
	assert.False(t, s.IsActive())

	// stopped durations are frozen
	clock.advance(time.Minute)
	assert.InDelta(t, 20.0, seconds(s.Duration()), 1e-9)
	assert.InDelta(t, 16.0, seconds(s.ActiveDuration()), 1e-9)
	assert.InDelta(t, 4.0, s.TotalPauseDuration(), 1e-9)

	err = s.StopRecording()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorCode_INVALID_STATE, appErrors.CodeOf(err))
}

func TestSessionState_InvalidTransitions(t *testing.T) {
	s := NewSessionState()

	assert.Error(t, s.PauseRecording())
	assert.Error(t, s.ResumeRecording())
	assert.Error(t, s.StopRecording())
	assert.Error(t, s.StartReconnecting(testMic, entities.DeviceTypeMicrophone))

	require.NoError(t, s.StartRecording())
	assert.Error(t, s.ResumeRecording())
	assert.Error(t, s.StopReconnecting(entities.DeviceTypeMicrophone))
}

func TestSessionState_StopWhilePausedClosesPause(t *testing.T) {
	clock := newFakeClock()
	s := newSessionStateWithClock(clock.now)

	require.NoError(t, s.StartRecording())
	clock.advance(5 * time.Second)
	require.NoError(t, s.PauseRecording())
	clock.advance(3 * time.Second)
	require.NoError(t, s.StopRecording())

	assert.InDelta(t, 5.0, seconds(s.ActiveDuration()), 1e-9)
	assert.Equal(t, 1, s.Stats().PauseCount)
	assert.Nil(t, s.Stats().CurrentPauseSeconds)
}

func TestSessionState_ReconnectingPerLeg(t *testing.T) {
	clock := newFakeClock()
	s := newSessionStateWithClock(clock.now)
	require.NoError(t, s.StartRecording())

	require.NoError(t, s.StartReconnecting(testMic, entities.DeviceTypeMicrophone))
	require.NoError(t, s.StartReconnecting(testMonitor, entities.DeviceTypeSystem))
	assert.True(t, s.IsReconnecting())
	assert.True(t, s.IsRecording())
	assert.Len(t, s.ReconnectingLegs(), 2)

	require.NoError(t, s.StopReconnecting(entities.DeviceTypeMicrophone))
	assert.True(t, s.IsReconnecting())
	assert.False(t, s.IsLegReconnecting(entities.DeviceTypeMicrophone))
	assert.True(t, s.IsLegReconnecting(entities.DeviceTypeSystem))

	require.NoError(t, s.StopReconnecting(entities.DeviceTypeSystem))
	assert.Equal(t, StatusRecording, s.Status())
}

func TestSessionState_ReconnectingWhilePausedReturnsToPaused(t *testing.T) {
	s := NewSessionState()
	require.NoError(t, s.StartRecording())
	require.NoError(t, s.PauseRecording())

	require.NoError(t, s.StartReconnecting(testMic, entities.DeviceTypeMicrophone))
	assert.True(t, s.IsPaused())

	require.NoError(t, s.StopReconnecting(entities.DeviceTypeMicrophone))
	assert.Equal(t, StatusPaused, s.Status())
}

func TestSessionState_PauseAndResumeWhileReconnecting(t *testing.T) {
	clock := newFakeClock()
	s := newSessionStateWithClock(clock.now)
	require.NoError(t, s.StartRecording())
	require.NoError(t, s.PauseRecording())
	require.NoError(t, s.StartReconnecting(testMic, entities.DeviceTypeMicrophone))

	clock.advance(3 * time.Second)
	require.NoError(t, s.ResumeRecording())
	assert.False(t, s.IsPaused())
	assert.Equal(t, StatusReconnecting, s.Status())

	// pause time stops accruing at resume, not when the leg returns
	clock.advance(5 * time.Second)
	assert.InDelta(t, 3.0, s.TotalPauseDuration(), 1e-9)

	require.NoError(t, s.PauseRecording())
	assert.True(t, s.IsPaused())
	assert.Error(t, s.PauseRecording())

	require.NoError(t, s.StopReconnecting(entities.DeviceTypeMicrophone))
	assert.Equal(t, StatusPaused, s.Status())
	require.NoError(t, s.ResumeRecording())
	assert.Equal(t, StatusRecording, s.Status())
}

func TestSessionState_ReportError(t *testing.T) {
	s := NewSessionState()

	var got []ErrorInfo
	s.SetErrorCallback(func(info ErrorInfo) {
		// the callback may query the state without deadlocking
		_ = s.Status()
		got = append(got, info)
	})

	mic := entities.DeviceTypeMicrophone
	s.ReportError(ErrorKindStream, stdErrors.New("read failed"), &mic)
	assert.False(t, s.HasFatalError())

	s.ReportError(ErrorKindMerge, stdErrors.New("muxer exited 1"), nil)
	assert.True(t, s.HasFatalError())

	count, last := s.ErrorInfo()
	assert.Equal(t, uint32(2), count)
	require.NotNil(t, last)
	assert.Equal(t, ErrorKindMerge, last.Kind)
	assert.Equal(t, "muxer exited 1", last.Message)
	require.Len(t, got, 2)
	assert.Equal(t, &mic, got[0].DeviceType)
}

func TestErrorKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{appErrors.ErrConfiguration("bad", nil), ErrorKindConfiguration},
		{appErrors.ErrEncode("audio_chunk_000.mp4", nil), ErrorKindEncode},
		{appErrors.ErrMerge("audio.mp4", "", nil), ErrorKindMerge},
		{appErrors.ErrNoCheckpoints(nil), ErrorKindNoCheckpoints},
		{appErrors.ErrIO("write", nil), ErrorKindIO},
		{stdErrors.New("plain"), ErrorKindStream},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, ErrorKindOf(tc.err), tc.err.Error())
	}
	assert.True(t, ErrorKindNoCheckpoints.IsFatal())
	assert.False(t, ErrorKindDeviceUnavailable.IsFatal())
}
