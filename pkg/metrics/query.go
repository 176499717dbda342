package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// StoreMetrics is an aggregated view of conversation store activity,
// assembled from a Prometheus server that scrapes the daemon.
type StoreMetrics struct {
	Conversations      int64 `json:"conversations"`
	Updates            int64 `json:"updates"`
	Compressions       int64 `json:"compressions"`
	FailedCompressions int64 `json:"failed_compressions"`
	ReclaimedTokens    int64 `json:"reclaimed_tokens"`
	Evictions          int64 `json:"evictions"`
	Reaps              int64 `json:"reaps"`
	Trims              int64 `json:"trims"`
	LockTimeouts       int64 `json:"lock_timeouts"`
}

// QueryService queries store metrics from a Prometheus server.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a query service against the given Prometheus URL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

func (q *QueryService) scalar(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("query %q failed: %w", query, err)
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}

// GetStoreMetrics aggregates the store counters into a single snapshot.
func (q *QueryService) GetStoreMetrics(ctx context.Context) (*StoreMetrics, error) {
	m := &StoreMetrics{}

	queries := []struct {
		dst   *int64
		query string
	}{
		{&m.Conversations, `convo_conversations`},
		{&m.Updates, `sum(convo_updates_total)`},
		{&m.Compressions, `sum(convo_compressions_total{status="success"})`},
		{&m.FailedCompressions, `sum(convo_compressions_total{status="error"})`},
		{&m.ReclaimedTokens, `convo_compressed_tokens_total`},
		{&m.Evictions, `convo_evictions_total`},
		{&m.Reaps, `convo_reaps_total`},
		{&m.Trims, `convo_trims_total`},
		{&m.LockTimeouts, `convo_lock_timeouts_total`},
	}
	for _, entry := range queries {
		v, err := q.scalar(ctx, entry.query)
		if err != nil {
			return nil, err
		}
		*entry.dst = v
	}
	return m, nil
}

// GetCompressionsByStrategy breaks successful compressions down by strategy.
func (q *QueryService) GetCompressionsByStrategy(ctx context.Context) (map[string]int64, error) {
	result, _, err := q.queryAPI.Query(ctx,
		`sum by (strategy) (convo_compressions_total{status="success"})`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query compressions by strategy: %w", err)
	}

	out := make(map[string]int64)
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			if strategy, ok := sample.Metric["strategy"]; ok {
				out[string(strategy)] = int64(sample.Value)
			}
		}
	}
	return out, nil
}
