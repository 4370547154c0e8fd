package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/clipstitch/internal/config"
	"github.com/audiolibrelab/clipstitch/internal/service"
)

func testServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()
	cfg := &config.Config{
		Output: config.OutputConfig{Directory: t.TempDir(), Project: "test"},
		Capture: config.CaptureConfig{
			AudioDevice: "default",
			Facing:      "back",
			Preset:      "medium",
			Simulated:   true,
		},
		Recording: config.RecordingConfig{
			MaxDurationSeconds:   60,
			SimulatedClipSeconds: 1,
		},
		Playback: config.PlaybackConfig{Engine: "timer", TimerScale: 0.001},
	}

	svc := service.New(cfg)
	t.Cleanup(svc.Shutdown)

	ts := httptest.NewServer(New(svc, "0").Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func TestStatusEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status service.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.False(t, status.IsRecording)
	assert.False(t, status.IsPlaying)
}

func TestStatusRejectsPost(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRecordStartStopRoundTrip(t *testing.T) {
	ts, svc := testServer(t)

	resp, err := http.Post(ts.URL+"/api/record/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A second start conflicts while the first is active.
	resp, err = http.Post(ts.URL+"/api/record/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/record/stop", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The segment lands asynchronously after finalization.
	deadline := time.Now().Add(2 * time.Second)
	for {
		segments, err := svc.Segments()
		require.NoError(t, err)
		if len(segments) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Recorded segment never appeared in the project")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlayEmptyProjectConflicts(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Post(ts.URL+"/api/play?mode=naive", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSegmentsDeleteRequiresID(t *testing.T) {
	ts, _ := testServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/segments", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
