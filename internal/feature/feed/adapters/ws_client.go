// Package adapters holds the vendor feed connection.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"stock_realtime/internal/feature/feed/usecase"
	"stock_realtime/internal/platform/metrics"
)

// ErrConnectionLost is reported when an established feed connection ends.
var ErrConnectionLost = errors.New("feed connection lost")

const (
	readLimit    = 1 << 20 // 1MB
	writeTimeout = 5 * time.Second
)

// State is the connection lifecycle of the feed client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// Session は1接続分のハンドシェイクと受信処理です。usecase.IngestUsecase が実装します。
type Session interface {
	Handshake(ctx context.Context, send usecase.SendFunc) (int, error)
	HandleFrame(ctx context.Context, raw []byte, reply usecase.SendFunc)
}

var _ Session = (*usecase.IngestUsecase)(nil)

// Client keeps one websocket connection to the vendor open, re-running the handshake
// after every loss.
type Client struct {
	url     string
	session Session
	backoff Backoff
	state   atomic.Int32
}

// NewClient は Client を生成します。
func NewClient(url string, session Session, backoff Backoff) *Client {
	return &Client{url: url, session: session, backoff: backoff}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	if State(c.state.Swap(int32(s))) != s {
		slog.Debug("feed state", "state", s.String())
	}
}

// Run connects and streams until ctx is done. A lost connection is never terminal:
// the client waits per its backoff and reconnects from scratch.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		streamed, err := c.connect(ctx)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if streamed {
			attempt = 0
		}
		attempt++
		wait := c.backoff.Next(attempt)
		metrics.FeedReconnectsTotal.Inc()
		slog.Warn("feed disconnected, reconnecting", "error", err, "attempt", attempt, "wait", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// connect runs one connection. The read loop starts together with the handshake so
// acknowledgements and heartbeats sent while subscribing are handled at once.
// streamed reports whether the handshake completed.
func (c *Client) connect(ctx context.Context) (bool, error) {
	c.setState(StateConnecting)
	ws, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	ws.SetReadLimit(readLimit)
	defer func() { _ = ws.Close(websocket.StatusNormalClosure, "shutdown") }()

	// nhooyr の Write は並行呼び出しに対応しています
	send := func(ctx context.Context, frame []byte) error {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return ws.Write(wctx, websocket.MessageText, frame)
	}

	var streamed atomic.Bool
	c.setState(StateSubscribing)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := c.session.Handshake(gctx, send); err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
		streamed.Store(true)
		c.setState(StateStreaming)
		slog.Info("feed streaming", "url", c.url)
		return nil
	})
	g.Go(func() error {
		return c.readLoop(gctx, ws, send)
	})
	err = g.Wait()
	return streamed.Load(), err
}

// readLoop hands every text frame to the session until the connection ends.
func (c *Client) readLoop(ctx context.Context, ws *websocket.Conn, send usecase.SendFunc) error {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return ErrConnectionLost
			}
			return errors.Join(ErrConnectionLost, err)
		}
		if typ != websocket.MessageText {
			continue
		}
		c.session.HandleFrame(ctx, data, send)
	}
}
