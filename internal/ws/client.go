package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/johan/polymarket-history/internal/token"
)

const (
	// DefaultURL is the default WebSocket URL for the CLOB market feed.
	DefaultURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultBackoffFactor  = 2.0
)

// MessageHandler is a callback for handling parsed feed messages.
type MessageHandler func(messages []Message)

// ReconnectConfig configures the reconnection behavior.
type ReconnectConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	MaxRetries     int // 0 = infinite
}

// DefaultReconnectConfig returns the default reconnection configuration.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
		BackoffFactor:  defaultBackoffFactor,
	}
}

// Client is a WebSocket client for the CLOB market feed.
type Client struct {
	url             string
	handler         MessageHandler
	reconnectConfig ReconnectConfig
	log             logrus.FieldLogger

	mu          sync.Mutex
	conn        *websocket.Conn
	assetIDs    []string
	isConnected bool
}

// NewClient creates a new feed client.
func NewClient(handler MessageHandler, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		url:             DefaultURL,
		handler:         handler,
		reconnectConfig: DefaultReconnectConfig(),
		log:             log,
	}
}

// WithURL sets a custom WebSocket URL.
func (c *Client) WithURL(url string) *Client {
	if url != "" {
		c.url = url
	}
	return c
}

// WithReconnectConfig sets the reconnection configuration.
func (c *Client) WithReconnectConfig(config ReconnectConfig) *Client {
	c.reconnectConfig = config
	return c
}

// Connect establishes the connection and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.isConnected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.connectWithBackoff(ctx)
}

func (c *Client) connectWithBackoff(ctx context.Context) error {
	backoff := c.reconnectConfig.InitialBackoff
	retries := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.isConnected = true
			ids := c.assetIDs
			c.mu.Unlock()

			if len(ids) > 0 {
				if err := c.sendSubscribe(ids); err != nil {
					c.log.WithError(err).Warn("resubscribe failed")
				}
			}

			go c.readLoop(ctx)
			return nil
		}

		retries++
		if c.reconnectConfig.MaxRetries > 0 && retries >= c.reconnectConfig.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", c.reconnectConfig.MaxRetries, err)
		}

		c.log.WithError(err).WithFields(logrus.Fields{
			"attempt": retries,
			"backoff": backoff,
		}).Warn("feed connection failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.reconnectConfig.BackoffFactor)
		if backoff > c.reconnectConfig.MaxBackoff {
			backoff = c.reconnectConfig.MaxBackoff
		}
	}
}

// Subscribe subscribes to updates for the given token identities. The feed
// addresses assets by their decimal encoding.
func (c *Client) Subscribe(ids []token.Identity) error {
	assetIDs := make([]string, len(ids))
	for i, id := range ids {
		assetIDs[i] = id.Decimal()
	}

	c.mu.Lock()
	c.assetIDs = assetIDs
	c.mu.Unlock()

	return c.sendSubscribe(assetIDs)
}

func (c *Client) sendSubscribe(assetIDs []string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	msg := SubscribeMessage{AssetsIDs: assetIDs}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling subscribe message: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing subscribe message: %w", err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.isConnected = false
			c.mu.Unlock()

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info("feed closed normally")
				return
			}

			c.log.WithError(err).Warn("feed read error, reconnecting")
			go func() {
				if reconnErr := c.connectWithBackoff(ctx); reconnErr != nil {
					c.log.WithError(reconnErr).Error("reconnection failed")
				}
			}()
			return
		}

		messages, err := Parse(data)
		if err != nil {
			c.log.WithError(err).Warn("dropping unparseable feed message")
			continue
		}

		if c.handler != nil && len(messages) > 0 {
			c.handler(messages)
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isConnected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected returns whether the client is currently connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}
