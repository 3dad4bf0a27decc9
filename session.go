package depthbook

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/0x5487/depthbook/protocol"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxLoggedFrame = 256

// Session is everything that exists for one subscribed symbol: the feed, the
// reconciled book, the presentation throttle and the replay history. All of it is
// discarded together when the session is disconnected.
type Session struct {
	id     string
	symbol string
	opts   Options
	log    logrus.FieldLogger

	book      *AggregatedBook
	throttle  *Throttle
	replay    *Replay
	feed      *Feed
	publisher PublishSnapshot

	dropLog *rate.Limiter

	applied   atomic.Uint64
	ignored   atomic.Uint64
	dropped   atomic.Uint64
	forwarded atomic.Uint64
}

// NewSession creates an idle session for symbol. Call Connect to start streaming.
func NewSession(symbol string, opts Options) *Session {
	opts = opts.withDefaults()

	s := &Session{
		id:        xid.New().String(),
		symbol:    symbol,
		opts:      opts,
		book:      NewAggregatedBook(symbol, opts.Depth),
		replay:    NewReplay(opts.HistorySize),
		publisher: opts.Publisher,
		dropLog:   rate.NewLimiter(rate.Every(time.Second), 5),
	}
	s.log = logger.WithFields(logrus.Fields{
		"symbol":     symbol,
		"session_id": s.id,
		"component":  "session",
	})
	s.throttle = NewThrottle(opts.ThrottleInterval, s.forward)
	s.feed = NewFeed(symbol, opts, sessionFeedHandler{s})

	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.id
}

// Symbol returns the subscribed symbol.
func (s *Session) Symbol() string {
	return s.symbol
}

// Connect starts the throttle and the feed. It returns once the connection loop
// is running; the first snapshot arrives asynchronously.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.feed.Connect(ctx); err != nil {
		return err
	}
	s.throttle.Start()

	s.log.WithField("url", s.opts.URL).Info("session: connecting")
	return nil
}

// Disconnect stops the feed and the throttle. Once it returns no message is
// reconciled and no snapshot is recorded or published.
func (s *Session) Disconnect() {
	s.feed.Disconnect()
	s.throttle.Stop()

	s.log.WithFields(logrus.Fields{
		"applied":   s.applied.Load(),
		"dropped":   s.dropped.Load(),
		"forwarded": s.forwarded.Load(),
	}).Info("session: closed")
}

// Pause pins the active snapshot to the latest recorded frame.
func (s *Session) Pause() {
	s.replay.Pause()
}

// Resume returns to the live snapshot.
func (s *Session) Resume() {
	s.replay.Resume()
}

// Scrub pins the active snapshot to history frame index, clamped to the recorded range.
func (s *Session) Scrub(index int) {
	s.replay.Scrub(index)
}

// Reset clears the history and anything still waiting in the throttle.
// The book itself is kept; the next forwarded snapshot starts a new history.
func (s *Session) Reset() {
	s.throttle.Discard()
	s.replay.Reset()
	historyFrames.WithLabelValues(s.symbol).Set(0)
}

// Active returns the snapshot to display: the live one, or the pinned frame while paused.
func (s *Session) Active() *BookSnapshot {
	return s.replay.Active()
}

// Live returns the latest forwarded snapshot.
func (s *Session) Live() *BookSnapshot {
	return s.replay.Live()
}

// History returns a copy of the recorded frames, oldest first.
func (s *Session) History() []HistoryFrame {
	return s.replay.History()
}

// IsPaused reports whether the session is pinned to a historical frame.
func (s *Session) IsPaused() bool {
	return s.replay.IsPaused()
}

// Cursor returns the pinned history index, or CursorLive.
func (s *Session) Cursor() int {
	return s.replay.Cursor()
}

// IsConnected reports whether the feed currently has a subscribed websocket.
func (s *Session) IsConnected() bool {
	return s.feed.Connected()
}

// Stats returns the counters of the session so far.
func (s *Session) Stats() Stats {
	return Stats{
		Applied:    s.applied.Load(),
		Ignored:    s.ignored.Load(),
		Dropped:    s.dropped.Load(),
		Forwarded:  s.forwarded.Load(),
		Reconnects: s.feed.Reconnects(),
	}
}

func (s *Session) onConnect() {
	// levels are kept for display but updates wait for the fresh snapshot
	s.book.OnRebuild()
}

func (s *Session) onMessage(raw []byte) {
	msg, err := protocol.Decode(s.opts.Serializer, raw)
	if err != nil {
		s.drop(err, raw)
		return
	}

	if msg.IsControl() {
		s.ignored.Add(1)
		messagesTotal.WithLabelValues(s.symbol, resultIgnored).Inc()

		if msg.Method == protocol.MethodSubscribe && msg.Success != nil && !*msg.Success {
			s.log.WithField("error", msg.Error).Error("session: subscribe rejected")
		}
		return
	}

	snap, err := s.book.Apply(msg)
	if err != nil {
		s.drop(err, raw)
		return
	}

	s.applied.Add(1)
	messagesTotal.WithLabelValues(s.symbol, resultApplied).Inc()
	s.throttle.Offer(snap)
}

func (s *Session) drop(err error, raw []byte) {
	s.dropped.Add(1)
	messagesTotal.WithLabelValues(s.symbol, resultDropped).Inc()

	if !s.dropLog.Allow() {
		return
	}

	frame := raw
	if len(frame) > maxLoggedFrame {
		frame = frame[:maxLoggedFrame]
	}

	log := s.log.WithError(err).WithField("frame", string(frame))
	if errors.Is(err, ErrNotSynced) {
		log.Debug("session: update before snapshot ignored")
		return
	}
	log.Warn("session: frame dropped")
}

// forward runs on the throttle goroutine.
func (s *Session) forward(snap *BookSnapshot) {
	s.replay.Record(snap)
	s.publisher.Publish(snap)

	s.forwarded.Add(1)
	forwardedTotal.WithLabelValues(s.symbol).Inc()
	historyFrames.WithLabelValues(s.symbol).Set(float64(s.replay.Len()))
}

type sessionFeedHandler struct {
	s *Session
}

func (h sessionFeedHandler) OnConnect() {
	h.s.onConnect()
}

func (h sessionFeedHandler) OnMessage(raw []byte) {
	h.s.onMessage(raw)
}
