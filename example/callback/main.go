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

func main() {
	flow, err := aegisfeed.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []aegisfeed.Snapshot) error {
		for _, s := range batch {
			thrust, ok := s.Thrust.Get()
			if !ok {
				continue
			}
			p1, _ := s.Pressure(0).Get()
			fmt.Printf("%s thrust=%.1fN p1=%.2fbar\n",
				s.Timestamp.Format(time.RFC3339Nano),
				thrust,
				p1,
			)
		}
		return nil
	}

	if err := flow.Run(ctx, aegisfeed.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
