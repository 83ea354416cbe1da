package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"StrikeGate/internal/domain/models"
	drepo "StrikeGate/internal/domain/repository"
	applogger "StrikeGate/pkg/logger"
)

// Client streams index ticks from the market data vendor over WebSocket.
// Read survives reconnects: the loop pauses on a broken conn and resumes
// once Reconnect has swapped it.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         l,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("market feed connected", applogger.String("url", c.websocketURL))
	return nil
}

func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("feed not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.logger.Info("market feed subscribed", applogger.Strings("symbols", c.symbols))
	return nil
}

// vendor frame: {"type":"trade","data":[{"s":...,"p":...,"v":...,"t":ms}]}
type feedTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"`
}

type feedMessage struct {
	Type string      `json:"type"`
	Data []feedTrade `json:"data"`
}

// Read streams tick events and errors. Channels close only when ctx ends.
func (c *Client) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 8)

	go c.pingLoop(ctx)

	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			if ctx.Err() != nil {
				return
			}
			conn := c.current()
			if conn == nil {
				// broken or not yet reconnected; retry shortly
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.reconnectDelay):
				}
				continue
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				c.markDown(conn)
				select {
				case errs <- fmt.Errorf("feed read: %w", err):
				default:
				}
				continue
			}
			var m feedMessage
			if err := json.Unmarshal(b, &m); err != nil {
				// ignore non-trade frames
				continue
			}
			if m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				t := &models.Tick{
					Symbol:    d.S,
					Price:     d.P,
					Qty:       d.V,
					Timestamp: d.T / 1000,
				}
				select {
				case ticks <- t:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if conn := c.current(); conn != nil {
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}
}

func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	return c.conn
}

// markDown clears the conn only if it is still the one that failed, so a
// racing Reconnect is not undone.
func (c *Client) markDown(failed *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == failed {
		c.conn = nil
		c.connected = false
	}
}

var _ drepo.MarketStream = (*Client)(nil)
