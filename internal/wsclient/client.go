package wsclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
)

// Defaults applied when the corresponding Config field is zero.
const (
	defaultReconnectInterval = 5 * time.Second
	defaultHandshakeTimeout  = 10 * time.Second
	defaultWriteTimeout      = 5 * time.Second

	// closeGracePeriod bounds the close handshake on shutdown.
	closeGracePeriod = time.Second
)

// Config holds WebSocket connection settings.
type Config struct {
	// URL is the full ws:// or wss:// dial target.
	URL string

	// ReconnectInterval is the fixed wait between connection attempts.
	ReconnectInterval time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// PingInterval enables keepalive pings. Zero disables them along
	// with the read deadline.
	PingInterval time.Duration
	PongTimeout  time.Duration

	// MaxMessageSize caps inbound frames. Zero means no limit.
	MaxMessageSize int64
}

// ConfigFrom builds a Config from the server section of config.yaml.
func ConfigFrom(cfg config.ServerConfig) (Config, error) {
	target, err := cfg.WebSocketURL()
	if err != nil {
		return Config{}, fmt.Errorf("server url: %w", err)
	}
	return Config{
		URL:               target,
		ReconnectInterval: cfg.ReconnectInterval,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		PingInterval:      cfg.PingInterval,
		PongTimeout:       cfg.PongTimeout,
		MaxMessageSize:    cfg.MaxMessageSize,
	}, nil
}

// Stats holds operational statistics.
type Stats struct {
	URL             string
	Connected       bool
	MessagesTx      uint64
	MessagesRx      uint64
	ConnectsTotal   uint64
	ReconnectsTotal uint64 // Successful connections after the first
	ErrorsTotal     uint64
	LastActivity    time.Time
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Client is a reconnecting WebSocket client.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Callbacks run on the client's read goroutine, one at a time, in wire
//     order. A slow callback delays reading the next frame.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	// Current connection (nil while disconnected)
	conn   *websocket.Conn
	connMu sync.RWMutex

	// Serialises data frames; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	// Callbacks
	onConnect    func(url string)
	onDisconnect func(err error)
	onText       func(data string)
	callbackMu   sync.RWMutex

	// Lifecycle
	started   atomic.Bool
	closed    atomic.Bool
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics
	messagesTx    atomic.Uint64
	messagesRx    atomic.Uint64
	connectsTotal atomic.Uint64
	errorsTotal   atomic.Uint64
	lastActivity  atomic.Int64 // Unix nanoseconds
}

// New creates a client. Set callbacks, then call Start.
func New(cfg Config) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PingInterval > 0 && cfg.PongTimeout <= 0 {
		cfg.PongTimeout = cfg.PingInterval
	}

	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// SetOnConnect sets the callback invoked after every successful (re)connect.
func (c *Client) SetOnConnect(callback func(url string)) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets the callback invoked when an open connection drops.
// It is not invoked for failed dial attempts or after Close.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetOnText sets the callback invoked for every inbound text frame.
func (c *Client) SetOnText(callback func(data string)) {
	c.callbackMu.Lock()
	c.onText = callback
	c.callbackMu.Unlock()
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// Start launches the connect loop in the background. It returns at once;
// the first dial happens asynchronously and failures are retried.
func (c *Client) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(runCtx)
	return nil
}

// runLoop dials, reads until the connection drops, waits, and repeats.
func (c *Client) runLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.errorsTotal.Add(1)
			c.logWarn("dial failed", "url", c.cfg.URL, "error", err, "retry_in", c.cfg.ReconnectInterval.String())
			if !c.wait(ctx) {
				return
			}
			continue
		}

		c.setConn(conn)
		c.connectsTotal.Add(1)
		c.touch()
		c.logInfo("connected", "url", c.cfg.URL)
		c.emitConnect()

		readErr := c.serve(ctx, conn)

		c.setConn(nil)
		conn.Close() //nolint:errcheck // Connection already failed or closing

		if ctx.Err() != nil || c.closed.Load() {
			return
		}

		c.errorsTotal.Add(1)
		c.logWarn("connection lost", "error", readErr, "retry_in", c.cfg.ReconnectInterval.String())
		c.emitDisconnect(readErr)

		if !c.wait(ctx) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // Handshake response body is unused
	}
	if err != nil {
		return nil, err
	}
	if c.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	return conn, nil
}

// serve runs the read loop for one connection, plus the pinger when enabled.
// Cancelling ctx closes the connection so the read loop unblocks. It returns
// the error that ended the read loop.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	var helpers sync.WaitGroup

	helpers.Add(1)
	go func() {
		defer helpers.Done()
		select {
		case <-ctx.Done():
			conn.Close() //nolint:errcheck // Unblocks ReadMessage
		case <-stop:
		}
	}()

	if c.cfg.PingInterval > 0 {
		c.extendReadDeadline(conn)
		conn.SetPongHandler(func(string) error {
			c.touch()
			c.extendReadDeadline(conn)
			return nil
		})

		helpers.Add(1)
		go func() {
			defer helpers.Done()
			c.pingLoop(conn, stop)
		}()
	}

	err := c.readLoop(conn)

	close(stop)
	helpers.Wait()
	return err
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.touch()

		if msgType != websocket.TextMessage {
			c.logDebug("ignoring non-text frame", "type", msgType, "bytes", len(data))
			continue
		}

		c.messagesRx.Add(1)
		c.emitText(string(data))
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logDebug("ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Client) extendReadDeadline(conn *websocket.Conn) {
	//nolint:errcheck // Only fails on a closed connection, which the read loop reports
	conn.SetReadDeadline(time.Now().Add(c.cfg.PingInterval + c.cfg.PongTimeout))
}

// wait sleeps for the reconnect interval. Returns false if ctx ends first.
func (c *Client) wait(ctx context.Context) bool {
	timer := time.NewTimer(c.cfg.ReconnectInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// SendText writes one text frame.
//
// Returns:
//   - ErrNotConnected if there is no open connection
//   - ErrSendFailed (wrapped) if the write fails or times out
func (c *Client) SendText(msg string) error {
	conn := c.currentConn()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	//nolint:errcheck // A failed deadline surfaces as a write error below
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	c.messagesTx.Add(1)
	c.touch()
	return nil
}

// IsConnected returns true while a connection is open.
func (c *Client) IsConnected() bool {
	return c.currentConn() != nil
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	connects := c.connectsTotal.Load()
	var reconnects uint64
	if connects > 0 {
		reconnects = connects - 1
	}

	var last time.Time
	if ns := c.lastActivity.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}

	return Stats{
		URL:             c.cfg.URL,
		Connected:       c.IsConnected(),
		MessagesTx:      c.messagesTx.Load(),
		MessagesRx:      c.messagesRx.Load(),
		ConnectsTotal:   connects,
		ReconnectsTotal: reconnects,
		ErrorsTotal:     c.errorsTotal.Load(),
		LastActivity:    last,
	}
}

// HealthCheck reports ErrNotConnected while the socket is down.
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close sends a close frame if connected, stops reconnecting and waits for
// the background goroutines. Safe to call multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		if conn := c.currentConn(); conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.logDebug("close frame not sent", "error", err)
			}
			conn.Close() //nolint:errcheck // Unblocks the read loop
		}

		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()

		c.logInfo("connection closed")
	})
	return nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) emitConnect() {
	c.callbackMu.RLock()
	cb := c.onConnect
	c.callbackMu.RUnlock()
	if cb != nil {
		cb(c.cfg.URL)
	}
}

func (c *Client) emitDisconnect(err error) {
	c.callbackMu.RLock()
	cb := c.onDisconnect
	c.callbackMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

func (c *Client) emitText(data string) {
	c.callbackMu.RLock()
	cb := c.onText
	c.callbackMu.RUnlock()
	if cb != nil {
		cb(data)
	}
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
