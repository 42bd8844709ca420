package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"smc-lab/internal/domain"
)

// WSConfig configures stream client behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default stream configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// KlineEvent is a streamed bar update. Final marks the bar as closed;
// non-final updates carry the in-progress bar state.
type KlineEvent struct {
	Candle domain.Candle
	Final  bool
}

// StreamClient consumes kline streams over WebSocket with automatic
// reconnect and resubscription.
type StreamClient struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps stream name to channel
	subs   map[string]chan KlineEvent
	subsMu sync.RWMutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewStreamClient creates a new stream client and connects to the endpoint.
func NewStreamClient(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*StreamClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &StreamClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		subs:     make(map[string]chan KlineEvent),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *StreamClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// streamName builds the kline stream identifier for a symbol/timeframe pair.
func streamName(symbol string, tf domain.Timeframe) string {
	return strings.ToLower(symbol) + "@kline_" + string(tf)
}

// SubscribeKlines subscribes to the kline stream for (symbol, timeframe).
// Events are delivered on the returned channel until Close.
func (c *StreamClient) SubscribeKlines(ctx context.Context, symbol string, tf domain.Timeframe) (<-chan KlineEvent, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	stream := streamName(symbol, tf)

	c.subsMu.Lock()
	if _, exists := c.subs[stream]; exists {
		c.subsMu.Unlock()
		return nil, fmt.Errorf("already subscribed to %s", stream)
	}
	// Large buffer absorbs bursts; dispatch blocks rather than drops.
	ch := make(chan KlineEvent, 10000)
	c.subs[stream] = ch
	c.subsMu.Unlock()

	if err := c.sendSubscribe(ctx, stream); err != nil {
		c.subsMu.Lock()
		delete(c.subs, stream)
		c.subsMu.Unlock()
		return nil, err
	}

	return ch, nil
}

// sendSubscribe writes a SUBSCRIBE request for a stream.
func (c *StreamClient) sendSubscribe(_ context.Context, stream string) error {
	req := wsRequest{
		Method: "SUBSCRIBE",
		Params: []string{stream},
		ID:     c.requestID.Add(1),
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the WebSocket connection.
func (c *StreamClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for name, ch := range c.subs {
		close(ch)
		delete(c.subs, name)
	}
	c.subsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from the socket and dispatches to subscribers.
func (c *StreamClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *StreamClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-sends SUBSCRIBE for all active streams after reconnect.
func (c *StreamClient) resubscribeAll() {
	c.subsMu.RLock()
	streams := make([]string, 0, len(c.subs))
	for name := range c.subs {
		streams = append(streams, name)
	}
	c.subsMu.RUnlock()

	for _, stream := range streams {
		if err := c.sendSubscribe(context.Background(), stream); err != nil {
			c.logger.Printf("Resubscribe %s failed: %v", stream, err)
		}
	}
}

// handleMessage processes one incoming message.
func (c *StreamClient) handleMessage(message []byte) {
	// Combined stream envelope
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err == nil && env.Stream != "" {
		c.handleKlinePayload(env.Data)
		return
	}

	// Raw kline payload
	var probe struct {
		EventType string `json:"e"`
	}
	if err := json.Unmarshal(message, &probe); err == nil && probe.EventType == "kline" {
		c.handleKlinePayload(message)
		return
	}

	// Subscribe acks ({"result":null,"id":N}) and unknown frames are ignored.
}

// handleKlinePayload parses a kline event and dispatches it.
func (c *StreamClient) handleKlinePayload(payload []byte) {
	var msg wsKlineMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.EventType != "kline" {
		return
	}

	event, err := msg.Kline.toEvent(msg.Symbol)
	if err != nil {
		c.logger.Printf("Bad kline payload for %s: %v", msg.Symbol, err)
		return
	}

	stream := streamName(msg.Symbol, domain.Timeframe(msg.Kline.Interval))

	c.subsMu.RLock()
	ch, ok := c.subs[stream]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop events
		select {
		case ch <- event:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *StreamClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     uint64   `json:"id"`
}

type wsEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type wsKlineMessage struct {
	EventType string  `json:"e"`
	EventTime int64   `json:"E"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

type wsKline struct {
	OpenTimeMs  int64  `json:"t"`
	CloseTimeMs int64  `json:"T"`
	Symbol      string `json:"s"`
	Interval    string `json:"i"`
	Open        string `json:"o"`
	Close       string `json:"c"`
	High        string `json:"h"`
	Low         string `json:"l"`
	Volume      string `json:"v"`
	Closed      bool   `json:"x"`
}

// toEvent converts the wire kline into a KlineEvent.
func (k wsKline) toEvent(symbol string) (KlineEvent, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return KlineEvent{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return KlineEvent{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return KlineEvent{}, fmt.Errorf("parse low: %w", err)
	}
	close, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return KlineEvent{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return KlineEvent{}, fmt.Errorf("parse volume: %w", err)
	}

	return KlineEvent{
		Candle: domain.Candle{
			Symbol:     symbol,
			Timeframe:  domain.Timeframe(k.Interval),
			OpenTimeMs: k.OpenTimeMs,
			Open:       open,
			High:       high,
			Low:        low,
			Close:      close,
			Volume:     volume,
		},
		Final: k.Closed,
	}, nil
}
