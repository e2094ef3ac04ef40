// Package handler attaches HTTP clients to the live tick broadcaster.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stock_realtime/internal/feature/live/broadcaster"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Subscriber は購読ハンドルを発行するインターフェースです。
type Subscriber interface {
	Subscribe(symbol string) *broadcaster.Subscription
}

// LiveHandler serves /stream/:symbol (SSE) and /ws/:symbol (WebSocket).
type LiveHandler struct {
	subs     Subscriber
	upgrader websocket.Upgrader
}

// NewLiveHandler は LiveHandler を生成します。
func NewLiveHandler(subs Subscriber) *LiveHandler {
	return &LiveHandler{
		subs: subs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func symbolParam(c *gin.Context) (string, bool) {
	sym := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if sym == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return "", false
	}
	return sym, true
}

// Stream は Server-Sent Events でティックを配信します。
func (h *LiveHandler) Stream(c *gin.Context) {
	sym, ok := symbolParam(c)
	if !ok {
		return
	}

	sub := h.subs.Subscribe(sym)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case ev := <-sub.Events():
			c.SSEvent(ev.Name, ev.Data)
			c.Writer.Flush()
		}
	}
}

// WebSocket upgrades the connection and writes each event as a JSON message.
func (h *LiveHandler) WebSocket(c *gin.Context) {
	sym, ok := symbolParam(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "symbol", sym, "error", err)
		return
	}
	defer conn.Close()

	sub := h.subs.Subscribe(sym)
	defer sub.Close()

	// 読み取りループ: クライアント切断と pong の検知のみ
	go func() {
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Fail(errors.Join(broadcaster.ErrSubscriberClosed, err))
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case ev := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				sub.Fail(err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				sub.Fail(err)
				return
			}
		}
	}
}
