package depthbook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Engine manages one session per subscribed symbol.
type Engine struct {
	isShutdown atomic.Bool
	sessions   sync.Map
	opts       Options
}

// NewEngine creates an engine whose sessions share opts.
func NewEngine(opts Options) *Engine {
	return &Engine{
		sessions: sync.Map{},
		opts:     opts.withDefaults(),
	}
}

// Subscribe creates and connects the session for symbol. Subscribing to a symbol
// that already has a session returns the existing one.
// Returns ErrShutdown if the engine is shutting down or ErrInvalidParam for an empty symbol.
func (engine *Engine) Subscribe(ctx context.Context, symbol string) (*Session, error) {
	if engine.isShutdown.Load() {
		return nil, ErrShutdown
	}
	if len(symbol) == 0 {
		return nil, ErrInvalidParam
	}

	session := NewSession(symbol, engine.opts)
	actual, loaded := engine.sessions.LoadOrStore(symbol, session)
	if loaded {
		return actual.(*Session), nil
	}

	if err := session.Connect(ctx); err != nil {
		engine.sessions.CompareAndDelete(symbol, session)
		return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	// Shutdown may have ranged over the sessions before this one was stored.
	if engine.isShutdown.Load() {
		engine.sessions.CompareAndDelete(symbol, session)
		session.Disconnect()
		forgetMetrics(symbol)
		return nil, ErrShutdown
	}

	logger.WithField("symbol", symbol).WithField("session_id", session.ID()).Info("engine: subscribed")
	return session, nil
}

// Unsubscribe disconnects the session of symbol and discards it together with its
// book and history. Returns ErrNotFound if the symbol is not subscribed.
func (engine *Engine) Unsubscribe(symbol string) error {
	value, found := engine.sessions.LoadAndDelete(symbol)
	if !found {
		return ErrNotFound
	}

	session := value.(*Session)
	session.Disconnect()
	forgetMetrics(symbol)

	logger.WithField("symbol", symbol).WithField("session_id", session.ID()).Info("engine: unsubscribed")
	return nil
}

// Switch replaces the subscription of from with one for to. The old session is
// fully torn down before the new one is created, so no message of the old symbol
// can reach the new book. from need not be subscribed.
func (engine *Engine) Switch(ctx context.Context, from, to string) (*Session, error) {
	if engine.isShutdown.Load() {
		return nil, ErrShutdown
	}
	if len(to) == 0 {
		return nil, ErrInvalidParam
	}

	if from == to {
		if session := engine.Session(to); session != nil {
			return session, nil
		}
	} else if err := engine.Unsubscribe(from); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return engine.Subscribe(ctx, to)
}

// Session returns the session of symbol, or nil if it is not subscribed.
func (engine *Engine) Session(symbol string) *Session {
	value, found := engine.sessions.Load(symbol)
	if !found {
		return nil
	}

	session, _ := value.(*Session)
	return session
}

// Symbols returns the subscribed symbols in lexical order.
func (engine *Engine) Symbols() []string {
	symbols := make([]string, 0)
	engine.sessions.Range(func(key, _ any) bool {
		symbols = append(symbols, key.(string))
		return true
	})
	sort.Strings(symbols)
	return symbols
}

// Shutdown disconnects every session in parallel and rejects further subscriptions.
// It blocks until all sessions are closed or ctx is done, in which case ErrTimeout is returned.
func (engine *Engine) Shutdown(ctx context.Context) error {
	engine.isShutdown.Store(true)

	var wg sync.WaitGroup
	engine.sessions.Range(func(key, value any) bool {
		engine.sessions.Delete(key)

		wg.Add(1)
		go func(symbol string, session *Session) {
			defer wg.Done()
			session.Disconnect()
			forgetMetrics(symbol)
		}(key.(string), value.(*Session))
		return true
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}
