// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StateFunc reports the current feed connection state (e.g. "streaming").
type StateFunc func() string

// SessionFunc reports whether the trading session is open at the time of the request.
type SessionFunc func(ctx context.Context) (bool, error)

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// GET ではフィード接続状態と取引セッションの開閉（open|closed|unknown）も返します。
// state / session が nil の場合はその項目を省略します。
func Health(state StateFunc, session SessionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		switch c.Request.Method {
		case http.MethodHead:
			c.Status(http.StatusOK)
		case http.MethodOptions:
			c.Status(http.StatusNoContent)
		default:
			body := gin.H{"status": "ok"}
			if state != nil {
				body["feed"] = state()
			}
			if session != nil {
				body["session"] = sessionLabel(c.Request.Context(), session)
			}
			c.JSON(http.StatusOK, body)
		}
	}
}

func sessionLabel(ctx context.Context, session SessionFunc) string {
	open, err := session(ctx)
	switch {
	case err != nil:
		slog.Warn("health: session lookup failed", "error", err)
		return "unknown"
	case open:
		return "open"
	default:
		return "closed"
	}
}
