package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"announce-helper/internal/domain"
	"announce-helper/internal/usecase"
)

type fakePanel struct {
	mu    sync.Mutex
	state usecase.PanelState
	hub   *usecase.Hub

	runErr    error
	updateErr error
	fileErr   error

	runs      int
	updates   []usecase.SettingsUpdate
	files     []string
	schedules []bool
	clears    int
	resets    int
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		hub: usecase.NewHub(),
		state: usecase.PanelState{
			Volume:      30,
			CommandPath: "/usr/bin/open",
			Endpoints:   []domain.OutputEndpoint{{ID: "HDMI-1", Name: "LG HDR 4K"}},
		},
	}
}

func (f *fakePanel) Snapshot() usecase.PanelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakePanel) Subscribe(buffer int) (<-chan usecase.Event, func()) {
	return f.hub.Subscribe(buffer)
}

func (f *fakePanel) Settings() domain.Settings { return domain.DefaultSettings() }

func (f *fakePanel) RunTest(context.Context) (<-chan domain.SessionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return nil, f.runErr
	}
	f.runs++
	f.state.Running = true
	ch := make(chan domain.SessionReport)
	close(ch)
	return ch, nil
}

func (f *fakePanel) RefreshDevices(context.Context) error { return nil }
func (f *fakePanel) RefreshLog() error                    { return nil }

func (f *fakePanel) ClearLog() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.state.Log = []domain.LogEntry{domain.NewLogEntry(time.Now(), "ログをクリアしました", "")}
	return nil
}

func (f *fakePanel) UpdateSettings(u usecase.SettingsUpdate) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.Settings{}, f.updateErr
	}
	f.updates = append(f.updates, u)
	if u.Volume != nil {
		f.state.Volume = *u.Volume
	}
	return domain.DefaultSettings(), nil
}

func (f *fakePanel) SetCommandFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fileErr != nil {
		return f.fileErr
	}
	f.files = append(f.files, path)
	f.state.CommandPath = path
	return nil
}

func (f *fakePanel) ToggleSchedule(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules = append(f.schedules, enabled)
	f.state.ScheduleEnabled = enabled
	return nil
}

func (f *fakePanel) RefreshSchedule(context.Context) error { return nil }

func (f *fakePanel) ResetToDefault() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, panel usecase.PanelUseCase, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewServer(panel, "127.0.0.1:0").Routes()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) usecase.PanelState {
	t.Helper()
	var state usecase.PanelState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

func TestIndexPage(t *testing.T) {
	w := serve(t, newFakePanel(), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "時間読み上げヘルパー")
}

func TestGetState(t *testing.T) {
	w := serve(t, newFakePanel(), http.MethodGet, "/api/state", "")

	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.Equal(t, 30, state.Volume)
	assert.Equal(t, "LG HDR 4K", state.Endpoints[0].Name)
}

func TestUpdateSettings(t *testing.T) {
	panel := newFakePanel()

	w := serve(t, panel, http.MethodPut, "/api/settings", `{"volume": 45, "commandArgs": "-a Music"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 45, decodeState(t, w).Volume)
	require.Len(t, panel.updates, 1)
	assert.Equal(t, "-a Music", *panel.updates[0].CommandArgs)
	assert.Nil(t, panel.updates[0].OutputDevice)
}

func TestUpdateSettingsErrors(t *testing.T) {
	panel := newFakePanel()

	w := serve(t, panel, http.MethodPut, "/api/settings", `{"volume": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	panel.updateErr = domain.ErrInvalidVolume
	w = serve(t, panel, http.MethodPut, "/api/settings", `{"volume": 150}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrInvalidVolume.Error())
}

func TestRunTest(t *testing.T) {
	panel := newFakePanel()

	w := serve(t, panel, http.MethodPost, "/api/run", "")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, decodeState(t, w).Running)
	assert.Equal(t, 1, panel.runs)
}

func TestRunTestWhileRunningConflicts(t *testing.T) {
	panel := newFakePanel()
	panel.runErr = domain.ErrSessionActive

	w := serve(t, panel, http.MethodPost, "/api/run", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, panel.runs)
}

func TestCommandFile(t *testing.T) {
	panel := newFakePanel()

	w := serve(t, panel, http.MethodPost, "/api/command-file", `{"path": "/usr/local/bin/announce.sh"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/usr/local/bin/announce.sh", decodeState(t, w).CommandPath)

	w = serve(t, panel, http.MethodPost, "/api/command-file", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	panel.fileErr = fmt.Errorf("stat /missing: no such file or directory")
	w = serve(t, panel, http.MethodPost, "/api/command-file", `{"path": "/missing"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"/usr/local/bin/announce.sh"}, panel.files)
}

func TestSchedule(t *testing.T) {
	panel := newFakePanel()

	w := serve(t, panel, http.MethodPut, "/api/schedule", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeState(t, w).ScheduleEnabled)

	w = serve(t, panel, http.MethodPut, "/api/schedule", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []bool{true}, panel.schedules)
}

func TestClearLogAndReset(t *testing.T) {
	panel := newFakePanel()

	w := serve(t, panel, http.MethodDelete, "/api/log", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ログをクリアしました", decodeState(t, w).Log[0].Message)

	w = serve(t, panel, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, panel.clears)
	assert.Equal(t, 1, panel.resets)
}

func TestStreamPushesStateOnEvents(t *testing.T) {
	panel := newFakePanel()
	srv := httptest.NewServer(NewServer(panel, "127.0.0.1:0").Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wsEnvelope
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "state", msg.Type)
	assert.Empty(t, msg.Event)
	assert.Equal(t, 30, msg.Data.Volume)

	// The subscription is registered before the first write, so this event
	// is not lost.
	panel.mu.Lock()
	panel.state.Volume = 55
	panel.mu.Unlock()
	panel.hub.Publish(usecase.Event{Kind: usecase.EventSettings})

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, string(usecase.EventSettings), msg.Event)
	assert.Equal(t, 55, msg.Data.Volume)
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	srv := httptest.NewServer(NewServer(newFakePanel(), "127.0.0.1:0").Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
