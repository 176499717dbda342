// Command parleyctl queries aggregated conversation store metrics from a
// Prometheus server that scrapes the parley daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"parley/pkg/metrics"
)

func main() {
	var (
		prometheusURL = flag.String("prometheus", "http://localhost:9090", "Prometheus server URL")
		asJSON        = flag.Bool("json", false, "Emit JSON instead of a table")
		timeout       = flag.Duration("timeout", 10*time.Second, "Query timeout")
	)
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "stats"
	}

	svc, err := metrics.NewQueryService(*prometheusURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case "stats":
		if err := printStats(ctx, svc, *asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "strategies":
		if err := printStrategies(ctx, svc, *asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q (expected stats or strategies)\n", command)
		os.Exit(2)
	}
}

func printStats(ctx context.Context, svc *metrics.QueryService, asJSON bool) error {
	m, err := svc.GetStoreMetrics(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("Conversations:        %d\n", m.Conversations)
	fmt.Printf("Updates:              %d\n", m.Updates)
	fmt.Printf("Compressions:         %d\n", m.Compressions)
	fmt.Printf("Failed compressions:  %d\n", m.FailedCompressions)
	fmt.Printf("Reclaimed tokens:     %d\n", m.ReclaimedTokens)
	fmt.Printf("Evictions:            %d\n", m.Evictions)
	fmt.Printf("Reaps:                %d\n", m.Reaps)
	fmt.Printf("Trims:                %d\n", m.Trims)
	fmt.Printf("Lock timeouts:        %d\n", m.LockTimeouts)
	return nil
}

func printStrategies(ctx context.Context, svc *metrics.QueryService, asJSON bool) error {
	byStrategy, err := svc.GetCompressionsByStrategy(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		data, err := json.MarshalIndent(byStrategy, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	if len(byStrategy) == 0 {
		fmt.Println("No compressions recorded.")
		return nil
	}
	for strategy, count := range byStrategy {
		fmt.Printf("%-12s %d\n", strategy, count)
	}
	return nil
}
