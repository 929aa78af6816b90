package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSignal struct{}

func (stubSignal) TrySend(core.Frame) error { return nil }
func (stubSignal) ShedOldest() bool         { return false }
func (stubSignal) Close()                   {}

type fixture struct {
	router *gin.Engine
	relay  *app.Relay
	orch   *orch.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>relay</html>"), 0o600))
	cfg := &config.Config{
		Mode:       "test",
		StaticPath: static,
		Secret:     "test-secret",
		ReadLimit:  1024,
		PingPeriod: time.Second,
		PongWait:   2 * time.Second,
		WriteWait:  time.Second,
		Relay:      config.RelayConfig{SendBuffer: 8, Overflow: app.OverflowDropOldest},
	}
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	reg := app.NewRegistry()
	policy, err := app.NewPolicy(cfg.Relay.Overflow)
	require.NoError(t, err)
	relay := app.NewRelay(reg, m)
	t.Cleanup(relay.Stop)
	o := orch.New(reg, policy, m)
	return &fixture{router: SetupRouter(context.Background(), cfg, relay, o, m), relay: relay, orch: o}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *fixture) join(t *testing.T, id, user string, room domain.RoomName) {
	t.Helper()
	sess := core.NewMemberSession(core.ConnID(id), domain.NewMember(&domain.User{ID: domain.UserID(user)}, time.Now()), stubSignal{})
	require.True(t, f.orch.Connect(sess, nil))
	f.orch.Join(core.ConnID(id), room)
}

func TestBootstrap_StartsOnce(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.relay.Running())

	rec := f.get(t, "/api/socket")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"started"}`, rec.Body.String())

	rec = f.get(t, "/api/socket")
	assert.JSONEq(t, `{"status":"running"}`, rec.Body.String())
	assert.True(t, f.relay.Running())
}

func TestRoomsAndMembers(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice", "S")
	f.join(t, "c2", "bob", "S")
	f.join(t, "c3", "carol", "T")

	rec := f.get(t, "/api/rooms")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rooms":[{"name":"S","members":2},{"name":"T","members":1}]}`, rec.Body.String())

	rec = f.get(t, "/api/rooms/S/members")
	assert.JSONEq(t, `[{"id":"c1","user":"alice"},{"id":"c2","user":"bob"}]`, rec.Body.String())

	rec = f.get(t, "/api/rooms/nowhere/members")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["relay"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "relay_connections")
}

func TestIndexAndClientCookie(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "relay")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "RelaySessions=")
}

func TestWebsocketUsesClientToken(t *testing.T) {
	f := newFixture(t)
	f.relay.EnsureRunning(context.Background())
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var hello struct {
		Event string `json:"event"`
		Data  struct {
			ID   string `json:"id"`
			User string `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, ws.ReadJSON(&hello))
	assert.Equal(t, "connect", hello.Event)
	assert.NotEmpty(t, hello.Data.ID)
	assert.Len(t, hello.Data.User, 36)
}
