// internal/realtime/connection.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRestartDelay is the minimum spacing between two restart attempts.
const DefaultRestartDelay = 5 * time.Second

const callbackQueueSize = 64

// State is the lifecycle phase of a Connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateRestarting:
		return "restarting"
	default:
		return "closed"
	}
}

// Credentials supplies the access token for each connect attempt.
type Credentials interface {
	// AwaitInitialCheckCompleted blocks until identity resolution has finished.
	AwaitInitialCheckCompleted(ctx context.Context) error
	Token() string
	SessionID() string
}

// Handler receives the payload of a named event.
type Handler func(payload json.RawMessage)

// Connection keeps one logical hub channel alive. It reconnects after failures
// and unexpected closes, spacing restarts by at least the restart delay, and
// never runs two connect attempts at once. Only Stop ends the loop.
type Connection struct {
	creds        Credentials
	dialer       Dialer
	clock        Clock
	base         *logrus.Entry
	restartDelay time.Duration

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu          sync.Mutex
	state       State
	closed      bool
	url         string
	name        string
	conn        Conn
	lastRestart time.Time
	onConnected func()
	handlers    map[string][]Handler
	cancel      context.CancelFunc
	done        chan struct{} // identifies the running loop; nil when none
}

// Option configures a Connection.
type Option func(*Connection)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option { return func(c *Connection) { c.dialer = d } }

// WithClock replaces the wall clock used for restart spacing.
func WithClock(clk Clock) Option { return func(c *Connection) { c.clock = clk } }

// WithLogger sets the logger. The channel name is added as a field.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Connection) { c.base = logrus.NewEntry(l) }
}

// WithRestartDelay overrides DefaultRestartDelay.
func WithRestartDelay(d time.Duration) Option {
	return func(c *Connection) { c.restartDelay = d }
}

// WithOnConnected sets the callback run after every successful connect.
// Equivalent to SetOnConnectedCallback.
func WithOnConnected(fn func()) Option {
	return func(c *Connection) { c.onConnected = fn }
}

// NewConnection returns a closed connection. Call Start to open it.
func NewConnection(creds Credentials, opts ...Option) *Connection {
	c := &Connection{
		creds:        creds,
		dialer:       WebsocketDialer{HandshakeTimeout: 15 * time.Second},
		clock:        systemClock{},
		base:         logrus.NewEntry(logrus.StandardLogger()),
		restartDelay: DefaultRestartDelay,
		state:        StateClosed,
		closed:       true,
		handlers:     make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastRestart = c.clock.Now()
	return c
}

// ChannelName extracts the channel segment after "hubs/" up to the query
// string. URLs without the marker are returned whole.
func ChannelName(rawURL string) string {
	i := strings.Index(rawURL, "hubs/")
	if i < 0 {
		return rawURL
	}
	name := rawURL[i+len("hubs/"):]
	if q := strings.IndexByte(name, '?'); q >= 0 {
		name = name[:q]
	}
	return name
}

// Start opens the channel at rawURL. It waits for the initial auth check, stops
// any loop still running for this connection, and returns once the first
// connect attempt has finished. A failed first attempt is not an error: the
// loop keeps retrying in the background.
func (c *Connection) Start(ctx context.Context, rawURL string) error {
	if err := c.creds.AwaitInitialCheckCompleted(ctx); err != nil {
		return fmt.Errorf("initial auth check: %w", err)
	}

	c.lifecycle.Lock()
	if err := c.stopLoop(ctx); err != nil {
		c.lifecycle.Unlock()
		return err
	}

	name := ChannelName(rawURL)
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	first := make(chan struct{})

	c.mu.Lock()
	c.url = rawURL
	c.name = name
	c.closed = false
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(loopCtx, rawURL, c.base.WithField("channel", name), done, first)
	c.lifecycle.Unlock()

	select {
	case <-first:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the channel and ends the restart loop, including one waiting out
// its restart delay. It returns once the loop has exited or ctx is done. It is
// safe to call from an event handler or the on-connected callback.
func (c *Connection) Stop(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.stopLoop(ctx)
}

// AddEventHandler registers fn for events named name. Handlers belong to the
// Connection, so they stay registered across reconnects.
func (c *Connection) AddEventHandler(name string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = append(c.handlers[name], fn)
}

// SetOnConnectedCallback replaces the callback run after every successful connect.
func (c *Connection) SetOnConnectedCallback(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected = fn
}

// State returns the current lifecycle phase.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Name returns the channel name derived from the last started URL.
func (c *Connection) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// stopLoop assumes the lifecycle lock is held.
func (c *Connection) stopLoop(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.state = StateClosed
	cancel, done, conn := c.cancel, c.done, c.conn
	c.cancel, c.done, c.conn = nil, nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the connect/restart loop of one Start. done identifies the loop: once
// stopLoop clears c.done the loop no longer owns the connection state and exits
// at its next check.
//
// Callbacks and event handlers run in order on a separate goroutine, so they
// may call Stop without waiting on their own loop.
func (c *Connection) run(ctx context.Context, rawURL string, log *logrus.Entry, done, first chan struct{}) {
	defer close(done)
	signalFirst := sync.OnceFunc(func() { close(first) })
	defer signalFirst()

	tasks := make(chan func(), callbackQueueSize)
	defer close(tasks)
	go runCallbacks(ctx, tasks)

	restarting := false
	for {
		if restarting && !c.awaitRestart(ctx, log, done) {
			return
		}
		if !c.transition(done, StateConnecting) {
			return
		}

		conn, err := c.dialer.Dial(ctx, rawURL, c.accessToken())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("hub connection failed")
			signalFirst()
			restarting = true
			continue
		}

		if !c.attach(done, conn) {
			_ = conn.Close()
			return
		}
		log.Info("hub connection started")
		enqueue(ctx, tasks, func() {
			if cb := c.connectedCallback(); cb != nil {
				cb()
			}
			signalFirst()
		})

		err = c.readEvents(ctx, conn, tasks)
		_ = conn.Close()
		c.detach(done, conn)
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Warn("hub connection lost")
		restarting = true
	}
}

// awaitRestart enforces the restart spacing. It returns false when the
// connection was closed before or during the wait.
func (c *Connection) awaitRestart(ctx context.Context, log *logrus.Entry, done chan struct{}) bool {
	c.mu.Lock()
	if c.closed || c.done != done {
		c.mu.Unlock()
		log.Info("hub connection closed")
		return false
	}
	c.state = StateRestarting
	wait := c.restartDelay - c.clock.Now().Sub(c.lastRestart)
	c.mu.Unlock()

	if wait > 0 {
		if err := c.clock.Sleep(ctx, wait); err != nil {
			log.Info("hub connection closed")
			return false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.done != done {
		log.Info("hub connection closed")
		return false
	}
	c.lastRestart = c.clock.Now()
	log.Info("hub connection restarting")
	return true
}

func (c *Connection) transition(done chan struct{}, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != done {
		return false
	}
	c.state = s
	return true
}

func (c *Connection) attach(done chan struct{}, conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != done {
		return false
	}
	c.conn = conn
	c.state = StateOpen
	return true
}

func (c *Connection) detach(done chan struct{}, conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == done && c.conn == conn {
		c.conn = nil
	}
}

func (c *Connection) connectedCallback() func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onConnected
}

// accessToken is evaluated per attempt so a refreshed token is used on reconnect.
// A bearer token wins over the guest session id.
func (c *Connection) accessToken() string {
	if t := c.creds.Token(); t != "" {
		return t
	}
	return c.creds.SessionID()
}

func (c *Connection) readEvents(ctx context.Context, conn Conn, tasks chan<- func()) error {
	for {
		ev, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if !enqueue(ctx, tasks, func() { c.dispatch(ev) }) {
			return ctx.Err()
		}
	}
}

// enqueue hands fn to the callback goroutine. It gives up once ctx is done so a
// callback blocked in Stop cannot stall the loop.
func enqueue(ctx context.Context, tasks chan<- func(), fn func()) bool {
	select {
	case tasks <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

// runCallbacks drains tasks until the loop closes the channel. Work queued
// before a stop is dropped.
func runCallbacks(ctx context.Context, tasks <-chan func()) {
	for fn := range tasks {
		if ctx.Err() != nil {
			continue
		}
		fn()
	}
}

func (c *Connection) dispatch(ev Event) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[ev.Type]...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(ev.Payload)
	}
}
