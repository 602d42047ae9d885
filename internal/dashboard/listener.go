package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tableside/api/internal/ws"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Send while the socket is down.
var ErrNotConnected = errors.New("listener not connected")

type listenerSub struct {
	kind string
	fn   func(ws.Event)
}

// Listener keeps a websocket open to the server and dispatches events to
// subscribers. The server does not replay missed events, so every
// successful (re)connect fires the OnConnect hooks and dashboards re-fetch.
type Listener struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger

	// maxInterval caps the reconnect backoff.
	maxInterval time.Duration
	// stableAfter is how long a connection must stay up, without delivering
	// anything, before the backoff is reset.
	stableAfter time.Duration

	mu        sync.Mutex
	subs      map[uuid.UUID]listenerSub
	onConnect map[uuid.UUID]func()

	connMu sync.Mutex
	conn   *websocket.Conn
}

type ListenerOption func(*Listener)

func WithListenerLogger(l *zap.Logger) ListenerOption {
	return func(ln *Listener) { ln.logger = l }
}

func WithDialer(d *websocket.Dialer) ListenerOption {
	return func(ln *Listener) { ln.dialer = d }
}

func WithMaxBackoff(d time.Duration) ListenerOption {
	return func(ln *Listener) { ln.maxInterval = d }
}

// WithStableAfter sets how long a silent connection must last before the
// reconnect backoff starts over.
func WithStableAfter(d time.Duration) ListenerOption {
	return func(ln *Listener) { ln.stableAfter = d }
}

// NewListener builds a listener for the server at baseURL (http or ws
// scheme). table narrows order-completed events for staff; customers are
// always pinned to the table in their token.
func NewListener(baseURL, token string, table int32, opts ...ListenerOption) (*Listener, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	q := url.Values{}
	q.Set("token", token)
	if table > 0 {
		q.Set("table", strconv.FormatInt(int64(table), 10))
	}
	u.RawQuery = q.Encode()

	l := &Listener{
		url:         u.String(),
		dialer:      websocket.DefaultDialer,
		logger:      zap.NewNop(),
		maxInterval: 30 * time.Second,
		stableAfter: 10 * time.Second,
		subs:        make(map[uuid.UUID]listenerSub),
		onConnect:   make(map[uuid.UUID]func()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Subscribe registers fn for one event kind ("" for all kinds). Handlers run
// on the listener's read goroutine.
func (l *Listener) Subscribe(kind string, fn func(ws.Event)) uuid.UUID {
	id := uuid.New()
	l.mu.Lock()
	l.subs[id] = listenerSub{kind: kind, fn: fn}
	l.mu.Unlock()
	return id
}

func (l *Listener) Unsubscribe(id uuid.UUID) {
	l.mu.Lock()
	delete(l.subs, id)
	l.mu.Unlock()
}

// OnConnect registers fn to run after every successful connect. The
// returned func removes it.
func (l *Listener) OnConnect(fn func()) func() {
	id := uuid.New()
	l.mu.Lock()
	l.onConnect[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.onConnect, id)
		l.mu.Unlock()
	}
}

// Run connects and keeps reconnecting with exponential backoff until ctx is
// done. It always returns ctx.Err(). The backoff applies to failed dials and
// to connections that drop before delivering an event or staying up for
// stableAfter, so a server that accepts and immediately closes is not
// hammered with re-fetches.
func (l *Listener) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = min(500*time.Millisecond, l.maxInterval)
	bo.MaxInterval = l.maxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	wait := func(reason string, err error) error {
		d := bo.NextBackOff()
		l.logger.Warn(reason, zap.Error(err), zap.Duration("retry_in", d))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}

	for {
		conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := wait("websocket dial failed", err); err != nil {
				return err
			}
			continue
		}

		connected := time.Now()
		l.setConn(conn)
		l.fireConnect()

		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-stop:
			}
		}()

		received, err := l.readLoop(conn)
		close(stop)
		l.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received || time.Since(connected) >= l.stableAfter {
			bo.Reset()
		}
		if err := wait("websocket disconnected", err); err != nil {
			return err
		}
	}
}

// Send writes an event to the server, e.g. an order-changed hint for a
// table.
func (l *Listener) Send(ev ws.Event) error {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn == nil {
		return ErrNotConnected
	}
	l.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return l.conn.WriteJSON(ev)
}

func (l *Listener) setConn(c *websocket.Conn) {
	l.connMu.Lock()
	l.conn = c
	l.connMu.Unlock()
}

func (l *Listener) fireConnect() {
	l.mu.Lock()
	hooks := make([]func(), 0, len(l.onConnect))
	for _, fn := range l.onConnect {
		hooks = append(hooks, fn)
	}
	l.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// readLoop reports whether at least one event arrived before the error.
func (l *Listener) readLoop(conn *websocket.Conn) (bool, error) {
	received := false
	for {
		var ev ws.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return received, err
		}
		received = true
		l.dispatch(ev)
	}
}

func (l *Listener) dispatch(ev ws.Event) {
	l.mu.Lock()
	var fns []func(ws.Event)
	for _, s := range l.subs {
		if s.kind == "" || s.kind == ev.Type {
			fns = append(fns, s.fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
