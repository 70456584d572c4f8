package connection

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a single push connection with callback registration.
// Registering a nil handler detaches it.
type Transport interface {
	OnOpen(fn func())
	OnMessage(fn func(data []byte))
	OnClose(fn func(err error))
	OnError(fn func(err error))

	// Open starts connecting in the background. Handlers fire from other goroutines.
	Open(ctx context.Context)

	// Close closes the transport. The close handler, if still attached, fires once.
	Close() error
}

// TransportFactory creates a fresh, unopened Transport.
type TransportFactory func() Transport

// NewWebSocketFactory returns a factory producing gorilla/websocket transports.
func NewWebSocketFactory(cfg TransportConfig, logger *slog.Logger) TransportFactory {
	return func() Transport {
		return NewWebSocketTransport(cfg, logger)
	}
}

// wsTransport implements Transport over gorilla/websocket.
type wsTransport struct {
	cfg    TransportConfig
	logger *slog.Logger

	// Handlers
	handlersMu sync.RWMutex
	onOpen     func()
	onMessage  func([]byte)
	onClose    func(error)
	onError    func(error)

	// Write serialization (control frames only)
	writeMu sync.Mutex

	// State
	mu         sync.Mutex
	conn       *websocket.Conn
	cancel     context.CancelFunc
	started    bool
	closed     bool
	lastPingAt time.Time
	closeErr   error

	closeOnce sync.Once
}

// NewWebSocketTransport creates an unopened WebSocket transport.
func NewWebSocketTransport(cfg TransportConfig, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &wsTransport{
		cfg:    cfg,
		logger: logger,
	}
}

func (t *wsTransport) OnOpen(fn func()) {
	t.handlersMu.Lock()
	t.onOpen = fn
	t.handlersMu.Unlock()
}

func (t *wsTransport) OnMessage(fn func([]byte)) {
	t.handlersMu.Lock()
	t.onMessage = fn
	t.handlersMu.Unlock()
}

func (t *wsTransport) OnClose(fn func(error)) {
	t.handlersMu.Lock()
	t.onClose = fn
	t.handlersMu.Unlock()
}

func (t *wsTransport) OnError(fn func(error)) {
	t.handlersMu.Lock()
	t.onError = fn
	t.handlersMu.Unlock()
}

// Open dials in the background. Calling Open twice, or after Close, does nothing.
func (t *wsTransport) Open(ctx context.Context) {
	t.mu.Lock()
	if t.started || t.closed {
		t.mu.Unlock()
		return
	}
	t.started = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(ctx)
}

// Close gracefully closes the connection.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	started := t.started
	t.mu.Unlock()

	// Abort an in-flight dial and stop the heartbeat
	if cancel != nil {
		cancel()
	}

	if !started {
		t.fireClose(ErrAlreadyClosed)
		return nil
	}

	if conn != nil {
		t.writeMu.Lock()
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.writeMu.Unlock()
		return conn.Close()
	}

	return nil
}

// run dials, then reads until the connection fails or is closed.
func (t *wsTransport) run(ctx context.Context) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if t.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+t.cfg.Token)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		t.logger.Debug("websocket dial failed", "url", t.cfg.URL, "error", err)
		t.fireError(err)
		t.fireClose(err)
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		t.fireClose(ErrAlreadyClosed)
		return
	}
	t.conn = conn
	t.lastPingAt = time.Now()
	t.mu.Unlock()

	// Server pings refresh liveness; reply with pong
	conn.SetPingHandler(func(data string) error {
		t.touch()

		t.writeMu.Lock()
		defer t.writeMu.Unlock()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(data string) error {
		t.touch()
		return nil
	})

	t.logger.Debug("websocket connected", "url", t.cfg.URL)
	t.fireOpen()

	if t.cfg.PingInterval > 0 {
		go t.heartbeatLoop(ctx, conn)
	}

	t.readLoop(conn)
}

// readLoop forwards frames until the connection fails.
func (t *wsTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closedByUs := t.closed
			if t.closeErr != nil {
				err = t.closeErr
			}
			t.mu.Unlock()

			if !closedByUs && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.fireError(err)
			}
			t.fireClose(err)
			return
		}

		t.fireMessage(data)
	}
}

// heartbeatLoop pings the server and closes stale connections.
func (t *wsTransport) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(t.cfg.WriteTimeout))
			t.writeMu.Unlock()
			if err != nil {
				t.logger.Debug("failed to send ping", "error", err)
			}

			t.mu.Lock()
			lastPing := t.lastPingAt
			t.mu.Unlock()

			if t.cfg.PingTimeout > 0 && time.Since(lastPing) > t.cfg.PingTimeout {
				t.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", t.cfg.PingTimeout,
				)
				t.mu.Lock()
				t.closeErr = ErrStaleConnection
				t.mu.Unlock()
				// Unblocks readLoop, which reports the close
				conn.Close()
				return
			}
		}
	}
}

func (t *wsTransport) touch() {
	t.mu.Lock()
	t.lastPingAt = time.Now()
	t.mu.Unlock()
}

func (t *wsTransport) fireOpen() {
	t.handlersMu.RLock()
	fn := t.onOpen
	t.handlersMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (t *wsTransport) fireMessage(data []byte) {
	t.handlersMu.RLock()
	fn := t.onMessage
	t.handlersMu.RUnlock()
	if fn != nil {
		fn(data)
	}
}

func (t *wsTransport) fireError(err error) {
	t.handlersMu.RLock()
	fn := t.onError
	t.handlersMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (t *wsTransport) fireClose(err error) {
	t.closeOnce.Do(func() {
		t.handlersMu.RLock()
		fn := t.onClose
		t.handlersMu.RUnlock()
		if fn != nil {
			fn(err)
		}
	})
}
