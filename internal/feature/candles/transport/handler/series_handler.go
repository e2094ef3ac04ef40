// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stock_realtime/internal/feature/candles/transport/http/dto"
	"stock_realtime/internal/feature/candles/usecase"
)

// SeriesUsecase は当日シリーズ取得のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type SeriesUsecase interface {
	Today(ctx context.Context, symbol string) (usecase.Series, error)
}

// SeriesHandler は当日シリーズのHTTPリクエストを処理します。
type SeriesHandler struct {
	uc SeriesUsecase
}

// NewSeriesHandler は指定されたusecaseでSeriesHandlerの新しいインスタンスを生成します。
func NewSeriesHandler(uc SeriesUsecase) *SeriesHandler {
	return &SeriesHandler{uc: uc}
}

// GetToday は銘柄の現在の取引日のスロット列をJSONで返します。
//
// エンドポイント例:
// GET /series/:symbol
func (h *SeriesHandler) GetToday(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	s, err := h.uc.Today(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	out := dto.SeriesResponse{
		Symbol:  s.Symbol,
		Date:    s.Window.Date,
		Session: s.Window.String(),
		Event:   s.Window.Event,
		MaxLen:  s.MaxLen,
		Slots:   make([]dto.SlotResponse, 0, len(s.Slots)),
	}
	for _, x := range s.Slots {
		out.Slots = append(out.Slots, dto.SlotResponse{
			Index:  x.Index,
			Time:   x.Candle.StartTime.UTC().Format(time.RFC3339),
			Open:   x.Candle.Open,
			High:   x.Candle.High,
			Low:    x.Candle.Low,
			Close:  x.Candle.Close,
			Volume: x.Candle.Volume,
		})
	}

	c.JSON(http.StatusOK, out)
}
