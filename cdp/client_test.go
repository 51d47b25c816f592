package cdp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicrun/remotebrowser/log"
)

// testCDPServer is a minimal CDP endpoint: it answers every command with an
// empty result and can push events to the client.
type testCDPServer struct {
	t      *testing.T
	srv    *httptest.Server
	connCh chan *websocket.Conn
}

func newTestCDPServer(t *testing.T) *testCDPServer {
	t.Helper()

	s := &testCDPServer{t: t, connCh: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s.connCh <- ws

		for {
			_, buf, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg := new(cdproto.Message)
			require.NoError(t, easyjson.Unmarshal(buf, msg))

			resp := map[string]any{"id": msg.ID, "result": map[string]any{}}
			if msg.SessionID != "" {
				resp["sessionId"] = msg.SessionID
			}
			out, err := json.Marshal(resp)
			require.NoError(t, err)
			require.NoError(t, ws.WriteMessage(websocket.TextMessage, out))
		}
	}))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *testCDPServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *testCDPServer) pushEvent(method, sessionID string, params any) {
	s.t.Helper()

	select {
	case ws := <-s.connCh:
		defer func() { s.connCh <- ws }()
		buf, err := json.Marshal(map[string]any{
			"method":    method,
			"sessionId": sessionID,
			"params":    params,
		})
		require.NoError(s.t, err)
		require.NoError(s.t, ws.WriteMessage(websocket.TextMessage, buf))
	case <-time.After(time.Second):
		s.t.Fatal("no websocket connection to push event to")
	}
}

func TestClientExecuteRoundTrip(t *testing.T) {
	t.Parallel()

	srv := newTestCDPServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient(ctx, log.NullLogger())
	require.NoError(t, c.Connect(ctx, srv.wsURL()))
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Page.Enable(ctx))
	require.NoError(t, c.Network.Enable(ctx))
}

func TestClientExecuteAfterClose(t *testing.T) {
	t.Parallel()

	srv := newTestCDPServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient(ctx, log.NullLogger())
	require.NoError(t, c.Connect(ctx, srv.wsURL()))
	require.NoError(t, c.Close())

	err := c.Page.Enable(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestClientConnectTwice(t *testing.T) {
	t.Parallel()

	srv := newTestCDPServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient(ctx, log.NullLogger())
	require.NoError(t, c.Connect(ctx, srv.wsURL()))
	defer func() { _ = c.Close() }()

	err := c.Connect(ctx, srv.wsURL())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already established")
}

func TestClientSubscribe(t *testing.T) {
	t.Parallel()

	srv := newTestCDPServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient(ctx, log.NullLogger())
	require.NoError(t, c.Connect(ctx, srv.wsURL()))
	defer func() { _ = c.Close() }()

	// A command forces the server handler to hold the connection open.
	require.NoError(t, c.Page.Enable(ctx))

	sessionCtx := WithSessionID(ctx, "sess-a")
	events, unsubscribe := c.Subscribe(sessionCtx, cdproto.EventPageJavascriptDialogOpening)
	defer unsubscribe()

	srv.pushEvent(
		string(cdproto.EventPageJavascriptDialogOpening), "sess-a",
		map[string]any{"url": "https://example.com", "message": "hi", "type": "alert"},
	)

	select {
	case evt := <-events:
		assert.Equal(t, cdproto.EventPageJavascriptDialogOpening, string(evt.Name))
		assert.Equal(t, "sess-a", evt.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}
}

func TestEventWatcherFiltersBySession(t *testing.T) {
	t.Parallel()

	w := newEventWatcher(context.Background(), log.NullLogger())
	ch, cancel := w.subscribe("sess-a", cdproto.EventPageJavascriptDialogOpening)
	defer cancel()

	w.notify(&Event{Name: cdproto.EventPageJavascriptDialogOpening, SessionID: "sess-b"})
	w.notify(&Event{Name: cdproto.EventPageLoadEventFired, SessionID: "sess-a"})
	w.notify(&Event{Name: cdproto.EventPageJavascriptDialogOpening, SessionID: "sess-a"})

	select {
	case evt := <-ch:
		assert.Equal(t, "sess-a", evt.SessionID)
		assert.Equal(t, cdproto.EventPageJavascriptDialogOpening, string(evt.Name))
	default:
		t.Fatal("expected a delivered event")
	}
	assert.Empty(t, ch)
}
