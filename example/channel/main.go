package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisFeed"
)

// Runs the o2feed scenario once the controller is up and prints every
// recorded batch until interrupted.
func main() {
	cfg, err := aegisfeed.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, batches, closeBatches := aegisfeed.NewChannelSink("fanout", 32)
	defer closeBatches()

	sup, err := aegisfeed.New(cfg, aegisfeed.WithSink(sink))
	if err != nil {
		log.Fatalf("supervisor: %v", err)
	}
	sup.Subscribe(func(st aegisfeed.State) {
		fmt.Printf("mode=%s valves=%s step=%d/%d\n", st.Mode, st.Valves, st.Step, st.Steps)
	})

	go fanoutWorker("archive", batches)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for !sup.Connected() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
		}
		if _, err := sup.StartScenario("o2feed"); err != nil {
			log.Printf("start scenario: %v", err)
		}
	}()

	if err := sup.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []aegisfeed.Snapshot) {
	for batch := range batches {
		fmt.Printf("[%s] %d snapshots at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
	}
}
