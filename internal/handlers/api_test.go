package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snatch/internal/activity"
	"snatch/internal/downloader"
	"snatch/internal/media"
	"snatch/internal/task"
)

type stubEngine struct {
	mu      sync.Mutex
	fetches int

	probeInfo *media.Info
	probeErr  error
	playlist  *media.PlaylistInfo
	fetchErr  error
}

func (s *stubEngine) Probe(ctx context.Context, url string) (*media.Info, error) {
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	return s.probeInfo, nil
}

func (s *stubEngine) Fetch(ctx context.Context, req media.FetchRequest, sink media.ProgressSink) (*media.FetchResult, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return &media.FetchResult{Title: "clip", FilePath: "/tmp/dl/clip.mp4"}, nil
}

func (s *stubEngine) ProbePlaylist(ctx context.Context, url string, max int) (*media.PlaylistInfo, error) {
	if s.playlist == nil {
		return nil, errors.New("no playlist")
	}
	return s.playlist, nil
}

type fixture struct {
	e        *echo.Echo
	api      *API
	engine   *stubEngine
	registry *task.Registry
	tracker  *activity.Tracker
	avail    *activity.Availability
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine := &stubEngine{
		probeInfo: &media.Info{
			Title:    "Test Clip",
			Channel:  "Test Channel",
			Duration: 212,
			Formats: []media.Format{
				{Height: 1080, HasVideo: true},
				{AudioBitrate: 128, HasAudio: true},
			},
		},
	}
	registry := task.NewRegistry()
	tracker := activity.NewTracker()
	avail := activity.NewAvailability(tracker)
	dl := downloader.New(engine, nil, tracker, t.TempDir())
	api := NewAPI(registry, dl, engine, avail, tracker, 600*time.Second, "/tmp/dl")

	e := echo.New()
	api.Register(e)

	return &fixture{e: e, api: api, engine: engine, registry: registry, tracker: tracker, avail: avail}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthAlwaysServed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sleeping", body["state"])
}

func TestStatusReportsIdleTimeout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "sleeping", body["state"])
	assert.Equal(t, float64(600), body["idle_timeout"])
}

func TestProtectedEndpointsRejectWhileSleeping(t *testing.T) {
	f := newFixture(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/info?url=https://youtu.be/abc", ""},
		{http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc"}`},
		{http.MethodGet, "/api/progress/some-id", ""},
		{http.MethodPost, "/api/cancel/some-id", ""},
	} {
		rec := f.do(tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "%s %s", tc.method, tc.path)
		body := decode(t, rec)
		assert.Equal(t, "sleeping", body["state"])
		assert.Contains(t, body["message"], "wakeup")
	}

	// No task was created by the rejected download.
	assert.Equal(t, 0, f.registry.Len())
}

func TestGateDoesNotCountRejectedRequestsAsActivity(t *testing.T) {
	f := newFixture(t)
	time.Sleep(20 * time.Millisecond)

	f.do(http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc"}`)
	assert.GreaterOrEqual(t, f.tracker.IdleDuration(), 15*time.Millisecond)
}

func TestWakeupArmsServer(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/wakeup", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "awake", body["state"])
	assert.Equal(t, activity.StateAwake, f.avail.State())

	// Protected endpoints are served now.
	rec = f.do(http.MethodGet, "/api/info?url=https://youtu.be/abc", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInfoValidation(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	rec := f.do(http.MethodGet, "/api/info", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInfoReturnsQualities(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	rec := f.do(http.MethodGet, "/api/info?url=https://youtu.be/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)

	assert.Equal(t, "Test Clip", body["title"])
	assert.Equal(t, "Test Channel", body["channel"])
	assert.Equal(t, float64(212), body["duration"])
	assert.Equal(t, false, body["is_playlist"])

	videos := body["video_qualities"].([]any)
	require.Len(t, videos, 1)
	first := videos[0].(map[string]any)
	assert.Equal(t, "Full HD (1080p)", first["label"])
}

func TestInfoIncludesPlaylistFields(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()
	f.engine.playlist = &media.PlaylistInfo{
		ID:      "PL1",
		Title:   "Mix",
		Entries: []media.PlaylistEntry{{ID: "a"}, {ID: "b"}},
	}

	rec := f.do(http.MethodGet, "/api/info?url=https://www.youtube.com/watch?v=abc%26list=PL1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["is_playlist"])
	assert.Equal(t, "Mix", body["playlist_title"])
	assert.Equal(t, float64(2), body["playlist_count"])
}

func TestInfoEngineFailure(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()
	f.engine.probeErr = errors.New("unsupported URL")

	rec := f.do(http.MethodGet, "/api/info?url=https://youtu.be/abc", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "unsupported URL", body["error"])
}

func TestDownloadValidation(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	rec := f.do(http.MethodPost, "/api/download", "not-json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/download", `{"format":"mp4"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "URL is required", body["error"])

	assert.Equal(t, 0, f.registry.Len())
}

func TestDownloadStartsTask(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	rec := f.do(http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc","format":"mp4","quality":"best"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	taskID := body["task_id"].(string)
	require.NotEmpty(t, taskID)

	// The worker runs in the background; poll until it finishes.
	require.Eventually(t, func() bool {
		rec := f.do(http.MethodGet, "/api/progress/"+taskID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		return decode(t, rec)["status"] == "completed"
	}, time.Second, 5*time.Millisecond)

	rec = f.do(http.MethodGet, "/api/progress/"+taskID, "")
	body = decode(t, rec)
	assert.Equal(t, float64(100), body["progress"])
	assert.Equal(t, "clip.mp4", body["filename"])
	assert.Nil(t, body["error"])
}

func TestProgressUnknownTask(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	rec := f.do(http.MethodGet, "/api/progress/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Task not found", body["error"])
}

func TestCancelUnknownTask(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	rec := f.do(http.MethodPost, "/api/cancel/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSingleTaskRejected(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	tk := f.registry.Create(false)
	rec := f.do(http.MethodPost, "/api/cancel/"+tk.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelPlaylistTask(t *testing.T) {
	f := newFixture(t)
	f.avail.Wake()

	tk := f.registry.Create(true)
	rec := f.do(http.MethodPost, "/api/cancel/"+tk.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])

	assert.True(t, tk.Cancelled())
	assert.Equal(t, task.StatusCancelled, tk.Status())
}
