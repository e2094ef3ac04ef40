// Package usecase drives a single vendor feed session: subscribing instruments and
// routing inbound frames into the aggregator and the live broadcaster.
package usecase

import (
	"context"
	"log/slog"

	"stock_realtime/internal/feature/feed/codec"
	"stock_realtime/internal/feature/feed/domain/entity"
	"stock_realtime/internal/platform/metrics"
	"stock_realtime/internal/shared/ratelimiter"
)

// Following Go convention: interfaces are defined by the consumer (usecase layer).

// ApprovalKeyProvider は接続ごとの承認キーを発行します。
type ApprovalKeyProvider interface {
	GetApprovalKey(ctx context.Context) (string, error)
}

// InstrumentLister は購読対象の銘柄一覧を返します。
type InstrumentLister interface {
	ListInstruments(ctx context.Context) ([]entity.Instrument, error)
}

// CandleUpdater receives every accepted tick.
type CandleUpdater interface {
	Update(symbol string, price float64, volume int64)
}

// TickBroadcaster fans a tick out to live subscribers of its symbol.
type TickBroadcaster interface {
	Broadcast(symbol string, tick entity.Tick) int
}

// SendFunc writes one text frame to the vendor connection.
type SendFunc func(ctx context.Context, frame []byte) error

// IngestUsecase は受信フレームの解釈と配信を担います。接続管理は adapters 側で行います。
type IngestUsecase struct {
	codec       *codec.Codec
	approval    ApprovalKeyProvider
	instruments InstrumentLister
	candles     CandleUpdater
	live        TickBroadcaster
	limiter     ratelimiter.RateLimiterInterface
}

// NewIngestUsecase は IngestUsecase を生成します。limiter は購読リクエストの送信間隔を制御します。
func NewIngestUsecase(
	c *codec.Codec,
	approval ApprovalKeyProvider,
	instruments InstrumentLister,
	candles CandleUpdater,
	live TickBroadcaster,
	limiter ratelimiter.RateLimiterInterface,
) *IngestUsecase {
	return &IngestUsecase{
		codec:       c,
		approval:    approval,
		instruments: instruments,
		candles:     candles,
		live:        live,
		limiter:     limiter,
	}
}

// Handshake obtains a fresh approval key and subscribes every configured instrument.
// A frame that cannot be built or sent is logged and skipped. Returns the number of
// instruments subscribed.
func (u *IngestUsecase) Handshake(ctx context.Context, send SendFunc) (int, error) {
	key, err := u.approval.GetApprovalKey(ctx)
	if err != nil {
		return 0, err
	}
	list, err := u.instruments.ListInstruments(ctx)
	if err != nil {
		return 0, err
	}

	subscribed := 0
	for _, inst := range list {
		frame, err := u.codec.BuildSubscribeFrame(key, inst)
		if err != nil {
			slog.Warn("skip instrument", "symbol", inst.Symbol, "venue", inst.Venue, "error", err)
			continue
		}
		// 連続送信はベンダー側で拒否されるため間隔を空ける
		if err := u.limiter.Wait(ctx); err != nil {
			return subscribed, err
		}
		if err := send(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return subscribed, ctx.Err()
			}
			slog.Warn("failed to send subscribe frame", "symbol", inst.Symbol, "error", err)
			continue
		}
		subscribed++
	}
	slog.Info("instruments subscribed", "count", subscribed, "total", len(list))
	return subscribed, nil
}

// HandleFrame routes one inbound frame. Heartbeats are echoed through reply; data
// frames are parsed into a Tick, applied to the aggregator and then broadcast.
// Malformed frames are dropped.
func (u *IngestUsecase) HandleFrame(ctx context.Context, raw []byte, reply SendFunc) {
	if ctrl, ok := codec.ParseControlFrame(raw); ok {
		switch {
		case ctrl.IsHeartbeat():
			if err := reply(ctx, raw); err != nil {
				slog.Warn("failed to echo heartbeat", "error", err)
			}
		case ctrl.Failed():
			slog.Warn("subscribe rejected",
				"tr_key", ctrl.Header.TrKey, "code", ctrl.Body.MsgCd, "message", ctrl.Body.Msg1)
		default:
			slog.Debug("control frame", "tr_id", ctrl.Header.TrID, "tr_key", ctrl.Header.TrKey, "message", ctrl.Body.Msg1)
		}
		return
	}

	tick, err := u.codec.ParseInboundFrame(raw)
	if err != nil {
		metrics.DroppedFramesTotal.Inc()
		slog.Debug("drop frame", "error", err)
		return
	}
	u.candles.Update(tick.Symbol, tick.Price, tick.Volume)
	u.live.Broadcast(tick.Symbol, tick)
	metrics.TicksTotal.Inc()
}
