package router

import (
	"github.com/gin-gonic/gin"

	candlehandler "stock_realtime/internal/feature/candles/transport/handler"
	livehandler "stock_realtime/internal/feature/live/transport/handler"
	"stock_realtime/internal/platform/http/handler"
	jwtmw "stock_realtime/internal/platform/jwt"
	"stock_realtime/internal/platform/metrics"
)

func NewRouter(series *candlehandler.SeriesHandler, live *livehandler.LiveHandler,
	feedState handler.StateFunc, session handler.SessionFunc, jwtSecret string) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用（フィード接続状態と取引セッションの開閉を含む）
	health := handler.Health(feedState, session)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	// Prometheus
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// JWT_SECRET が設定されている場合のみトークン必須
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(jwtSecret))
	{
		auth.GET("/series/:symbol", series.GetToday)
		auth.GET("/stream/:symbol", live.Stream)
		auth.GET("/ws/:symbol", live.WebSocket)
	}

	return r
}
