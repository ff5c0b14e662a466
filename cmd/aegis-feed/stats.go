package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ghalamif/AegisFeed/pkg/aegisfeed"
)

var statsKeys = []string{
	"aegis_snapshots_published_total",
	"aegis_intents_admitted_total",
	"aegis_intents_rejected_total",
	"aegis_valve_commands_total",
	"aegis_system_mode",
	"aegis_controller_connected",
	"aegis_recorder_samples_total",
	"aegis_wal_size_bytes",
}

func streamStats(ctx context.Context, w io.Writer, url string, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	fmt.Fprintf(w, "Streaming metrics from %s (Ctrl+C to stop)\n", url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(ctx, w, url); err != nil {
				fmt.Fprintf(w, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(ctx context.Context, w io.Writer, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrape(resp.Body, statsKeys)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", time.Now().Format(time.RFC3339))
	for _, k := range statsKeys {
		fmt.Fprintf(&b, " %s=%g", strings.TrimPrefix(strings.TrimSuffix(k, "_total"), "aegis_"), values[k])
	}
	if mode := int(values["aegis_system_mode"]); mode >= 0 && mode < len(aegisfeed.Modes) {
		fmt.Fprintf(&b, " (%s)", aegisfeed.Modes[mode])
	}
	fmt.Fprintln(w, b.String())
	return nil
}

// scrape picks unlabelled samples out of the Prometheus text format.
func scrape(r io.Reader, keys []string) (map[string]float64, error) {
	out := make(map[string]float64, len(keys))
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range keys {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					out[key] = value
				}
			}
		}
	}
	return out, scanner.Err()
}

func printScenarios(w io.Writer) {
	for _, name := range aegisfeed.Scenarios() {
		def, _ := aegisfeed.LookupScenario(name)
		fmt.Fprintf(w, "%-13s %d steps, %s\n", name, len(def.Steps), def.Duration())
		for i, step := range def.Steps {
			fmt.Fprintf(w, "  %d. %s  +%s\n", i+1, step.Valves, step.DelayAfter)
		}
	}
}
