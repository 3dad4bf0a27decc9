package depthbook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0x5487/depthbook/protocol"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// FeedHandler receives what the feed reads. Both methods are called from the
// feed goroutine, one at a time, and never after Disconnect returns.
type FeedHandler interface {
	// OnConnect is called once per connection, right after the subscribe request was sent.
	OnConnect()
	// OnMessage is called with every data frame in arrival order.
	OnMessage(raw []byte)
}

// Feed owns the websocket connection of one symbol. It subscribes on every
// connection and reconnects after a flat delay until Disconnect is called.
type Feed struct {
	symbol  string
	opts    Options
	handler FeedHandler
	log     logrus.FieldLogger

	mu         sync.Mutex // serializes dispatch against Disconnect
	conn       *websocket.Conn
	cancel     context.CancelFunc
	isRunning  bool
	isShutdown bool

	writeMu sync.Mutex // gorilla allows a single concurrent writer
	wg      sync.WaitGroup

	isConnected atomic.Bool
	reconnects  atomic.Uint64
}

// NewFeed creates a feed for symbol. Nothing is dialed until Connect.
func NewFeed(symbol string, opts Options, handler FeedHandler) *Feed {
	return &Feed{
		symbol:  symbol,
		opts:    opts.withDefaults(),
		handler: handler,
		log: logger.WithFields(logrus.Fields{
			"symbol":    symbol,
			"component": "feed",
		}),
	}
}

// Connect starts the connection loop in the background and returns immediately.
func (f *Feed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isShutdown {
		return ErrShutdown
	}
	if f.isRunning {
		return ErrAlreadyConnected
	}

	ctx, f.cancel = context.WithCancel(ctx)
	f.isRunning = true

	f.wg.Add(1)
	go f.run(ctx)

	return nil
}

// Disconnect stops the feed: the pending reconnect, if any, is cancelled and the
// socket is closed. It blocks until the connection loop has exited. Once it returns
// the handler is not called again. A disconnected feed cannot be reused.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	if f.isShutdown {
		f.mu.Unlock()
		return
	}
	f.isShutdown = true
	if f.cancel != nil {
		f.cancel()
	}
	conn := f.conn
	f.mu.Unlock()

	if conn != nil {
		f.closeConn(conn)
	}

	f.wg.Wait()
	f.setConnected(false)
	f.log.Info("feed: disconnected")
}

// Connected reports whether a websocket is currently open and subscribed.
func (f *Feed) Connected() bool {
	return f.isConnected.Load()
}

// Reconnects returns how many times the connection was re-established or retried.
func (f *Feed) Reconnects() uint64 {
	return f.reconnects.Load()
}

func (f *Feed) run(ctx context.Context) {
	defer f.wg.Done()

	for {
		err := f.serve(ctx)
		f.setConnected(false)

		if ctx.Err() != nil {
			return
		}

		f.log.WithError(err).Warnf("feed: connection lost, reconnecting in %s", f.opts.ReconnectDelay)

		timer := time.NewTimer(f.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		f.reconnects.Add(1)
		reconnectsTotal.WithLabelValues(f.symbol).Inc()
	}
}

// serve runs a single connection until it fails or ctx is cancelled.
func (f *Feed) serve(ctx context.Context) error {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: f.opts.HandshakeTimeout,
	}

	f.log.WithField("url", f.opts.URL).Debug("feed: dialing")
	conn, _, err := dialer.DialContext(ctx, f.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.opts.URL, err)
	}
	defer conn.Close()

	f.mu.Lock()
	if ctx.Err() != nil {
		f.mu.Unlock()
		return ctx.Err()
	}
	f.conn = conn
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		if f.conn == conn {
			f.conn = nil
		}
		f.mu.Unlock()
	}()

	req := protocol.NewBookSubscribe(f.symbol, f.opts.Depth)
	if err := f.writeRequest(conn, req); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	pongWait := 2 * f.opts.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	f.wg.Add(1)
	go f.keepAlive(conn, done)

	if !f.dispatch(ctx, func() { f.handler.OnConnect() }) {
		return ctx.Err()
	}
	f.setConnected(true)
	f.log.WithField("depth", f.opts.Depth).Info("feed: subscribed")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if !f.dispatch(ctx, func() { f.handler.OnMessage(raw) }) {
			return ctx.Err()
		}
	}
}

// dispatch runs fn unless the feed was disconnected. It reports false when it was.
func (f *Feed) dispatch(ctx context.Context, fn func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

func (f *Feed) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				f.log.WithError(err).Debug("feed: ping failed")
				return
			}
		}
	}
}

func (f *Feed) writeRequest(conn *websocket.Conn, req *protocol.SubscribeRequest) error {
	payload, err := f.opts.Serializer.Marshal(req)
	if err != nil {
		return err
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// closeConn unsubscribes and sends a close frame, both best effort, then closes the socket.
func (f *Feed) closeConn(conn *websocket.Conn) {
	if err := f.writeRequest(conn, protocol.NewBookUnsubscribe(f.symbol, f.opts.Depth)); err != nil {
		f.log.WithError(err).Debug("feed: unsubscribe failed")
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		f.log.WithError(err).Debug("feed: close frame failed")
	}

	_ = conn.Close()
}

func (f *Feed) setConnected(v bool) {
	f.isConnected.Store(v)
	if v {
		connectedGauge.WithLabelValues(f.symbol).Set(1)
	} else {
		connectedGauge.WithLabelValues(f.symbol).Set(0)
	}
}
