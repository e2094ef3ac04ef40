// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts ticks applied to the aggregator.
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stock_realtime",
		Name:      "ticks_total",
		Help:      "Ticks parsed from the vendor feed and applied to the aggregator.",
	})

	// DroppedFramesTotal counts inbound frames that could not be parsed.
	DroppedFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stock_realtime",
		Name:      "dropped_frames_total",
		Help:      "Inbound vendor frames discarded as malformed.",
	})

	// SlotWritesTotal counts flushed slots by result (written|skipped|failed).
	SlotWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock_realtime",
		Name:      "slot_writes_total",
		Help:      "Candle slots handled by the flush scheduler.",
	}, []string{"result"})

	// Subscribers is the number of live stream subscriptions.
	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stock_realtime",
		Name:      "live_subscribers",
		Help:      "Currently registered live subscribers.",
	})

	// FeedReconnectsTotal counts vendor feed reconnect attempts.
	FeedReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stock_realtime",
		Name:      "feed_reconnects_total",
		Help:      "Reconnect attempts against the vendor feed.",
	})
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		TicksTotal,
		DroppedFramesTotal,
		SlotWritesTotal,
		Subscribers,
		FeedReconnectsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler は /metrics 用の HTTP ハンドラを返します。
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
