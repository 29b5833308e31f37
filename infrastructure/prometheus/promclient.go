package promclient

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var FeedBestBidGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "coinbase_best_bid",
		Help: "best bid price of the local order book",
	},
)

var FeedBestAskGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "coinbase_best_ask",
		Help: "best ask price of the local order book",
	},
)

var FeedOpenOrdersGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "coinbase_open_orders",
		Help: "orders resting on the local order book",
	},
)

var FeedReconnectsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coinbase_feed_reconnects_total",
		Help: "websocket reconnect sequences started",
	},
)

var FeedReseedsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coinbase_feed_reseeds_total",
		Help: "full order book reseeds from a REST snapshot",
	},
)

var FeedSequenceGapsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coinbase_feed_sequence_gaps_total",
		Help: "sequence gaps detected on the stream",
	},
)

var FeedOrderEventsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coinbase_feed_order_events_total",
		Help: "order events dispatched from the feed",
	},
)

func StartPromClientServer(addr string) {
	reg := prometheus.NewRegistry()
	promHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	reg.MustRegister(FeedBestBidGauge)
	reg.MustRegister(FeedBestAskGauge)
	reg.MustRegister(FeedOpenOrdersGauge)
	reg.MustRegister(FeedReconnectsTotal)
	reg.MustRegister(FeedReseedsTotal)
	reg.MustRegister(FeedSequenceGapsTotal)
	reg.MustRegister(FeedOrderEventsTotal)
	reg.MustRegister(collectors.NewGoCollector())

	http.Handle("/metrics", promHandler)
	log.Printf("prometheus server listening at %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
