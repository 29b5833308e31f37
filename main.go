package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spooky-finn/go-coinbase-l3-bridge/config"
	"github.com/spooky-finn/go-coinbase-l3-bridge/domain"
	"github.com/spooky-finn/go-coinbase-l3-bridge/helpers"
	promclient "github.com/spooky-finn/go-coinbase-l3-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-coinbase-l3-bridge/provider/coinbase"
	"github.com/spooky-finn/go-coinbase-l3-bridge/usecase"
)

func main() {
	conf := config.Load()

	wsURL := conf.WebsocketEndpoint
	restURL := conf.RestEndpoint
	if wsURL == "" {
		wsURL = coinbase.DefaultWebsocketEndpoint
		if conf.UseSandbox {
			wsURL = coinbase.SandboxWebsocketEndpoint
		}
	}
	if restURL == "" {
		restURL = coinbase.DefaultRestEndpoint
		if conf.UseSandbox {
			restURL = coinbase.SandboxRestEndpoint
		}
	}

	syncAPI := coinbase.NewSyncAPI(restURL)
	client := domain.NewFeedClient(conf.ProductID, syncAPI, func(queue *domain.EventQueue) domain.StreamWorker {
		return coinbase.NewStreamClient(wsURL, conf.ProductID, queue)
	})

	client.OnBookUpdate(func(view *domain.BookView) {
		if len(view.Bids) > 0 {
			promclient.FeedBestBidGauge.Set(view.Bids[0].Price)
		}
		if len(view.Asks) > 0 {
			promclient.FeedBestAskGauge.Set(view.Asks[0].Price)
		}
	})

	if config.DebugMode {
		client.OnOrderEvent(func(ev *domain.OrderEvent) {
			log.Printf("order event: %s", helpers.ToJsonString(ev))
		})
	}

	go promclient.StartPromClientServer(conf.MetricsAddr)

	if err := client.Start(); err != nil {
		log.Fatalf("failed to start coinbase feed client: %s", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		client.Stop()
	}()

	snapshotUseCase := usecase.NewBookSnapshotUseCase(client)
	lastReport := time.Now()

	for !client.Stopped() {
		if !client.Dispatch() {
			// Queue was empty within the timeout; nothing else to run here.
			continue
		}

		if time.Since(lastReport) > 5*time.Second {
			if view, err := snapshotUseCase.GetOrderBookSnapshot(conf.BookViewDepth); err == nil {
				log.Printf("book: %s", helpers.ToJsonString(view))
			}
			lastReport = time.Now()
		}
	}

	client.Join()
}
