package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmoroz/mexc-tracker/internal/model"
)

// DefaultURL is the MEXC contract WebSocket endpoint.
const DefaultURL = "wss://contract.mexc.com/edge"

// Config configures the live watcher.
type Config struct {
	URL            string        // WebSocket URL
	PingInterval   time.Duration // Cadence of JSON ping keepalives
	WriteTimeout   time.Duration // Write deadline for sends
	ReadTimeout    time.Duration // Max silence before the connection is considered dead
	ReconnectMin   time.Duration // Initial reconnect backoff
	ReconnectMax   time.Duration // Backoff ceiling
	TriggerCooloff time.Duration // Min spacing between early checks
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:            DefaultURL,
		PingInterval:   20 * time.Second,
		WriteTimeout:   5 * time.Second,
		ReadTimeout:    60 * time.Second,
		ReconnectMin:   time.Second,
		ReconnectMax:   2 * time.Minute,
		TriggerCooloff: 30 * time.Second,
	}
}

// command is a client-to-server frame. MEXC uses JSON-level pings rather
// than WebSocket control frames.
type command struct {
	Method string         `json:"method"`
	Param  map[string]any `json:"param,omitempty"`
}

// envelope is a server push frame.
type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// tickerPush is one entry of a push.tickers frame.
type tickerPush struct {
	Symbol string `json:"symbol"`
}

// Watcher holds one MEXC WebSocket subscription and a known-symbol set.
type Watcher struct {
	cfg     Config
	logger  *slog.Logger
	trigger func()

	mu          sync.RWMutex
	known       map[string]struct{}
	pending     map[string]struct{} // unknown symbols already reported, awaiting commit
	connected   bool
	lastTrigger time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// New creates a watcher. trigger is invoked (rate-limited) whenever an
// unknown USDT symbol shows up on the feed.
func New(cfg Config, trigger func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:     cfg,
		logger:  logger,
		trigger: trigger,
		known:   make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
}

// SetKnown replaces the known-symbol set from a committed snapshot.
// Pending symbols that made it into the snapshot stop re-triggering.
func (w *Watcher) SetKnown(snap model.Snapshot) {
	known := make(map[string]struct{}, snap.Len())
	for sym := range snap.Entries {
		known[sym] = struct{}{}
	}

	w.mu.Lock()
	w.known = known
	for sym := range w.pending {
		if _, ok := known[sym]; ok {
			delete(w.pending, sym)
		}
	}
	w.mu.Unlock()
}

// IsConnected reports whether the feed is currently up.
func (w *Watcher) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Start begins the connect/read/reconnect loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("live watch started", "url", w.cfg.URL)
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConn()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("live watch stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run reconnects with exponential backoff until the context is cancelled.
func (w *Watcher) run() {
	defer w.wg.Done()

	backoff := w.cfg.ReconnectMin
	for {
		if w.ctx.Err() != nil {
			return
		}

		err := w.session()
		if w.ctx.Err() != nil {
			return
		}

		w.logger.Warn("live watch disconnected, reconnecting",
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-w.ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > w.cfg.ReconnectMax {
			backoff = w.cfg.ReconnectMax
		}
	}
}

// session runs one connection: dial, subscribe, keepalive, read until error.
func (w *Watcher) session() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(w.ctx, w.cfg.URL, nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	w.writeMu.Lock()
	w.conn = conn
	w.writeMu.Unlock()

	defer func() {
		w.mu.Lock()
		w.connected = false
		w.mu.Unlock()
		w.closeConn()
	}()

	if err := w.send(command{Method: "sub.tickers", Param: map[string]any{}}); err != nil {
		return err
	}
	w.logger.Debug("subscribed to ticker feed")

	pingDone := make(chan struct{})
	defer close(pingDone)
	go w.keepalive(pingDone)

	for {
		conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		w.handleMessage(data)
	}
}

// keepalive sends JSON pings until the session ends.
func (w *Watcher) keepalive(done <-chan struct{}) {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.send(command{Method: "ping"}); err != nil {
				w.logger.Debug("keepalive ping failed", "error", err)
				return
			}
		}
	}
}

// handleMessage inspects one push frame for unknown symbols.
func (w *Watcher) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		w.logger.Debug("unparseable frame", "error", err)
		return
	}
	if env.Channel != "push.tickers" {
		return
	}

	var tickers []tickerPush
	if err := json.Unmarshal(env.Data, &tickers); err != nil {
		w.logger.Debug("unparseable tickers payload", "error", err)
		return
	}

	fresh := w.collectUnknown(tickers)
	if len(fresh) == 0 {
		return
	}

	w.logger.Info("unseen symbols on live feed", "symbols", fresh)
	w.maybeTrigger()
}

// collectUnknown returns USDT symbols not in the known set, marking them
// pending so they report once per commit window.
func (w *Watcher) collectUnknown(tickers []tickerPush) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Before the first commit feeds us a snapshot, everything would look
	// unknown; stay quiet.
	if len(w.known) == 0 {
		return nil
	}

	var fresh []string
	for _, tk := range tickers {
		sym := tk.Symbol
		if !strings.HasSuffix(sym, "_USDT") {
			continue
		}
		if _, ok := w.known[sym]; ok {
			continue
		}
		if _, ok := w.pending[sym]; ok {
			continue
		}
		w.pending[sym] = struct{}{}
		fresh = append(fresh, sym)
	}
	return fresh
}

// maybeTrigger fires the early-check callback, rate-limited by the cooloff.
func (w *Watcher) maybeTrigger() {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastTrigger) < w.cfg.TriggerCooloff {
		w.mu.Unlock()
		return
	}
	w.lastTrigger = now
	w.mu.Unlock()

	if w.trigger != nil {
		go w.trigger()
	}
}

// send writes one JSON frame, serialized against the keepalive goroutine.
func (w *Watcher) send(cmd command) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.conn == nil {
		return websocket.ErrCloseSent
	}
	w.conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	return w.conn.WriteJSON(cmd)
}

func (w *Watcher) closeConn() {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.conn != nil {
		w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		w.conn.Close()
		w.conn = nil
	}
}
