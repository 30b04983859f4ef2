package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received envelopes, and acks session_start.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeSessionStart {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu        sync.Mutex
	envelopes []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envelopes = append(m.envelopes, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.envelopes))
	copy(cp, m.envelopes)
	return cp
}

// byType waits briefly for fire-and-forget envelopes to land, then
// returns those matching msgType.
func (m *messageLog) byType(msgType string) []streaming.Envelope {
	time.Sleep(50 * time.Millisecond)
	var out []streaming.Envelope
	for _, env := range m.all() {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestBackend(t *testing.T, srv *httptest.Server) *Backend {
	t.Helper()
	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testPoints() []core.GeoPoint {
	return []core.GeoPoint{
		{Lat: 48.137, Lng: 11.575, Timestamp: 1717232400000},
		{Lat: 48.150, Lng: 11.600, Timestamp: 1717232460000},
	}
}

func TestInitSendsSessionStart(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	newTestBackend(t, srv)

	headers := ml.byType(streaming.TypeSessionStart)
	require.Len(t, headers, 1)

	var p streaming.SessionStartPayload
	require.NoError(t, json.Unmarshal(headers[0].Payload, &p))
	assert.Equal(t, core.EngineVersion, p.EngineVersion)
	assert.NotZero(t, p.StartedAt)
}

func TestInitDialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1", Secret: "test"}, nil)
	assert.Error(t, b.Init())
}

func TestSaveRouteAssignsIDsAndStreams(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := newTestBackend(t, srv)

	first := core.RouteMeta{Name: "Isar loop"}
	second := core.RouteMeta{Name: "Olympiapark"}
	require.NoError(t, b.SaveRoute(&first, testPoints()))
	require.NoError(t, b.SaveRoute(&second, testPoints()))

	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)

	saves := ml.byType(streaming.TypeSaveRoute)
	require.Len(t, saves, 2)

	var p streaming.SaveRoutePayload
	require.NoError(t, json.Unmarshal(saves[0].Payload, &p))
	assert.Equal(t, "Isar loop", p.Meta.Name)
	assert.Len(t, p.Points, 2)
	assert.NotEmpty(t, p.Polyline)
}

func TestSaveRouteKeepsExplicitID(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	b := newTestBackend(t, srv)

	imported := core.RouteMeta{ID: 7, Name: "Imported"}
	require.NoError(t, b.SaveRoute(&imported, testPoints()))
	assert.Equal(t, uint(7), imported.ID)

	// The counter must skip past explicit IDs.
	fresh := core.RouteMeta{Name: "Fresh"}
	require.NoError(t, b.SaveRoute(&fresh, testPoints()))
	assert.Equal(t, uint(8), fresh.ID)
}

func TestLoadRouteFromMirror(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	b := newTestBackend(t, srv)

	meta := core.RouteMeta{Name: "Isar loop", Tag: "gravel"}
	points := testPoints()
	require.NoError(t, b.SaveRoute(&meta, points))

	gotMeta, gotPoints, err := b.LoadRoute(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)
	assert.Equal(t, points, gotPoints)

	_, _, err = b.LoadRoute(999)
	assert.True(t, errors.Is(err, core.ErrRouteNotFound))
}

func TestListRoutesOrdered(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	b := newTestBackend(t, srv)

	for _, name := range []string{"first", "second", "third"} {
		meta := core.RouteMeta{Name: name}
		require.NoError(t, b.SaveRoute(&meta, testPoints()))
	}

	metas, err := b.ListRoutes()
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, "first", metas[0].Name)
	assert.Equal(t, "second", metas[1].Name)
	assert.Equal(t, "third", metas[2].Name)
	assert.Less(t, metas[0].ID, metas[1].ID)
	assert.Less(t, metas[1].ID, metas[2].ID)
}

func TestDeleteRoute(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := newTestBackend(t, srv)

	meta := core.RouteMeta{Name: "doomed"}
	require.NoError(t, b.SaveRoute(&meta, testPoints()))

	require.NoError(t, b.DeleteRoute(meta.ID))
	_, _, err := b.LoadRoute(meta.ID)
	assert.True(t, errors.Is(err, core.ErrRouteNotFound))

	assert.True(t, errors.Is(b.DeleteRoute(meta.ID), core.ErrRouteNotFound))

	deletes := ml.byType(streaming.TypeDeleteRoute)
	require.Len(t, deletes, 1)

	var p streaming.DeleteRoutePayload
	require.NoError(t, json.Unmarshal(deletes[0].Payload, &p))
	assert.Equal(t, meta.ID, p.RouteID)
}

func TestPendingWritesEmptyWhileConnected(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	b := newTestBackend(t, srv)

	meta := core.RouteMeta{Name: "live"}
	require.NoError(t, b.SaveRoute(&meta, testPoints()))
	assert.Equal(t, 0, b.PendingWrites())
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeDeleteRoute, streaming.DeleteRoutePayload{RouteID: 42})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeDeleteRoute, decoded.Type)

	var dp streaming.DeleteRoutePayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &dp))
	assert.Equal(t, uint(42), dp.RouteID)
}
