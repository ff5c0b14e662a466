package aegisfeed

import (
	"context"
	"errors"
	"testing"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	src := &stubSource{}
	sink := &stubSink{}

	sup, err := flow.
		StreamIN(
			StreamInSource(src),
			StreamInObservability(&stubObservability{}),
			StreamInOffline(),
		).
		StreamOUT(
			StreamOutSink(sink),
			StreamOutTransformer(&stubTransformer{}),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if sup.source != src {
		t.Fatalf("expected custom source to be wired")
	}
	if sup.recorder == nil || sup.recorder.sink != sink {
		t.Fatalf("expected custom sink to be wired")
	}
	if sup.session != nil {
		t.Fatalf("expected offline flow to skip the controller session")
	}
}

func TestFlowRunStopsOnCancelledContext(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := flow.StreamIN(
		StreamInSource(&stubSource{}),
		StreamInObservability(&stubObservability{}),
		StreamInOffline(),
	).Run(ctx,
		StreamOutCallback("noop", func([]Snapshot) error { return nil }),
	); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}
