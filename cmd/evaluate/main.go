// Command evaluate runs the forecast rules outside the service. It prints the
// alerts a forecast would raise, computes alert ids for arbitrary messages and
// follows the alert topic.
//
// Usage:
//
//	go run ./cmd/evaluate forecast --file saved-forecast.json --timezone UTC
//	go run ./cmd/evaluate id --rule rain "Rain expected in the next few hours. Prepare accordingly."
//	go run ./cmd/evaluate tail --brokers localhost:9092 --topic fiber-alerts
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
