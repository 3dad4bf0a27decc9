package depthbook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer is a websocket endpoint that runs serve for every accepted connection.
type wsServer struct {
	*httptest.Server
	connections atomic.Int32
}

func newWSServer(t *testing.T, serve func(conn *websocket.Conn, n int32)) *wsServer {
	t.Helper()

	s := &wsServer{}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn, s.connections.Add(1))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// drain reads until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testOptions(url string) Options {
	opts := DefaultOptions()
	opts.URL = url
	opts.ThrottleInterval = 0
	opts.ReconnectDelay = 20 * time.Millisecond
	opts.HandshakeTimeout = time.Second
	return opts
}

type recordingHandler struct {
	mu       sync.Mutex
	connects int
	messages []string
}

func (h *recordingHandler) OnConnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects++
}

func (h *recordingHandler) OnMessage(raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, string(raw))
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects, len(h.messages)
}

func TestFeedSubscribe(t *testing.T) {
	requests := make(chan string, 4)
	srv := newWSServer(t, func(conn *websocket.Conn, _ int32) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		requests <- string(msg)

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"heartbeat"}`))
		drain(conn)
	})

	h := &recordingHandler{}
	feed := NewFeed(testSymbol, testOptions(srv.wsURL()), h)
	require.NoError(t, feed.Connect(context.Background()))
	defer feed.Disconnect()

	select {
	case req := <-requests:
		assert.JSONEq(t, `{"method":"subscribe","params":{"channel":"book","symbol":["BTC/USD"],"depth":25}}`, req)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe request received")
	}

	assert.Eventually(t, func() bool {
		connects, messages := h.counts()
		return connects == 1 && messages == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, feed.Connected())

	assert.ErrorIs(t, feed.Connect(context.Background()), ErrAlreadyConnected)
}

func TestFeedReconnect(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, n int32) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"status"}`))
		if n == 1 {
			// drop the first connection without a close handshake
			return
		}
		drain(conn)
	})

	h := &recordingHandler{}
	feed := NewFeed(testSymbol, testOptions(srv.wsURL()), h)
	require.NoError(t, feed.Connect(context.Background()))
	defer feed.Disconnect()

	assert.Eventually(t, func() bool {
		connects, _ := h.counts()
		return connects == 2 && feed.Connected()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), srv.connections.Load())
	assert.Equal(t, uint64(1), feed.Reconnects())
}

func TestFeedDialFailureRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	h := &recordingHandler{}
	feed := NewFeed(testSymbol, testOptions(url), h)
	require.NoError(t, feed.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		return feed.Reconnects() >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, feed.Connected())

	feed.Disconnect()
	connects, _ := h.counts()
	assert.Equal(t, 0, connects)
}

func TestFeedDisconnect(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, _ int32) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for {
			err := conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"heartbeat"}`))
			if err != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	})

	h := &recordingHandler{}
	feed := NewFeed(testSymbol, testOptions(srv.wsURL()), h)
	require.NoError(t, feed.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		_, messages := h.counts()
		return messages > 10
	}, 2*time.Second, 5*time.Millisecond)

	feed.Disconnect()
	feed.Disconnect()
	assert.False(t, feed.Connected())

	_, before := h.counts()
	time.Sleep(100 * time.Millisecond)
	connects, after := h.counts()

	assert.Equal(t, before, after)
	assert.Equal(t, 1, connects)
	assert.Equal(t, int32(1), srv.connections.Load())
	assert.ErrorIs(t, feed.Connect(context.Background()), ErrShutdown)
}

func TestFeedDisconnectDuringBackoff(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, _ int32) {})

	opts := testOptions(srv.wsURL())
	opts.ReconnectDelay = time.Hour

	feed := NewFeed(testSymbol, opts, &recordingHandler{})
	require.NoError(t, feed.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		return srv.connections.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		feed.Disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect blocked on the reconnect delay")
	}
	assert.Equal(t, uint64(0), feed.Reconnects())
}

func TestFeedContextCancel(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, _ int32) {
		drain(conn)
	})

	ctx, cancel := context.WithCancel(context.Background())
	h := &recordingHandler{}
	feed := NewFeed(testSymbol, testOptions(srv.wsURL()), h)
	require.NoError(t, feed.Connect(ctx))

	assert.Eventually(t, feed.Connected, 2*time.Second, 10*time.Millisecond)
	cancel()

	// the loop stops reconnecting once the parent context is gone
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), srv.connections.Load())
	feed.Disconnect()
}
