package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"facecam/internal/engine"
	"facecam/internal/entity"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	TypeLoadModel  = "load_model"
	TypeSetBackend = "set_backend"
	TypeReady      = "ready"
	TypeDetect     = "detect"
)

// ErrRemote is matched by failures the worker reported itself.
var ErrRemote = errors.New("inference worker error")

type Request struct {
	ID      string                `json:"id"`
	Type    string                `json:"type"`
	Model   *engine.ModelBundle   `json:"model,omitempty"`
	Backend engine.Backend        `json:"backend,omitempty"`
	Detect  *engine.DetectOptions `json:"detect,omitempty"`
	Image   string                `json:"image,omitempty"`
}

type Response struct {
	ID         string             `json:"id"`
	OK         bool               `json:"ok"`
	Error      string             `json:"error,omitempty"`
	Detections []entity.Detection `json:"detections,omitempty"`
}

var _ engine.Runtime = (*Client)(nil)

type Option func(*Client)

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.dialer.HandshakeTimeout = d
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pingInterval = d
	}
}

// Client talks to the inference worker hosting the face models. It
// implements engine.Runtime. Requests are serialised over one connection,
// which is re-dialled lazily after any transport failure.
type Client struct {
	url          string
	log          *logrus.Logger
	dialer       *websocket.Dialer
	pingInterval time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
	stop chan struct{}
}

func New(url string, log *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		url: url,
		log: log,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) LoadModel(ctx context.Context, bundle *engine.ModelBundle) error {
	_, err := c.roundTrip(ctx, &Request{Type: TypeLoadModel, Model: bundle})
	return err
}

func (c *Client) SetBackend(ctx context.Context, backend engine.Backend) error {
	_, err := c.roundTrip(ctx, &Request{Type: TypeSetBackend, Backend: backend})
	return err
}

func (c *Client) Ready(ctx context.Context) error {
	_, err := c.roundTrip(ctx, &Request{Type: TypeReady})
	return err
}

func (c *Client) Detect(ctx context.Context, img image.Image, opts engine.DetectOptions) ([]entity.Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	resp, err := c.roundTrip(ctx, &Request{
		Type:   TypeDetect,
		Detect: &opts,
		Image:  base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return nil, err
	}

	return resp.Detections, nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.conn == nil {
		return
	}

	close(c.stop)
	c.conn.Close()
	c.conn = nil
	c.stop = nil
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	c.log.WithFields(logrus.Fields{
		"url": c.url,
	}).Info("Connecting to inference worker")

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	c.stop = make(chan struct{})
	go c.keepAlive(conn, c.stop)

	return nil
}

func (c *Client) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	if c.pingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				c.log.Warnf("Inference worker ping failed: %v", err)
				return
			}
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	conn := c.conn

	req.ID = uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.closeLocked()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.closeLocked()
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		c.closeLocked()
		return nil, err
	}

	// unblock the read when ctx ends; the worker has no deadline of its own
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.closeLocked()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("receive %s: %w", req.Type, err)
		}

		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Discarding malformed inference reply")
			continue
		}

		if resp.ID != req.ID {
			continue
		}

		if !resp.OK {
			return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
		}

		return &resp, nil
	}
}
