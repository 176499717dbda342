// Package metrics provides Prometheus-based metrics recording for the
// conversation store, plus a query service for aggregating them from a
// Prometheus server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder publishes store activity as Prometheus metrics. A nil *Recorder
// is valid and records nothing, so the store works without observability
// wired up.
type Recorder struct {
	conversations     prometheus.Gauge
	updatesTotal      *prometheus.CounterVec
	compressionsTotal *prometheus.CounterVec
	compressedTokens  prometheus.Counter
	evictionsTotal    prometheus.Counter
	reapsTotal        prometheus.Counter
	trimsTotal        prometheus.Counter
	lockTimeoutsTotal prometheus.Counter
	curatedItemsTotal prometheus.Counter
}

// NewRecorder registers the store metrics with the default registry.
func NewRecorder() *Recorder {
	return &Recorder{
		conversations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "convo_conversations",
			Help: "Number of conversations currently held in the store",
		}),
		updatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convo_updates_total",
				Help: "Total conversation update operations by status",
			},
			[]string{"status"},
		),
		compressionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convo_compressions_total",
				Help: "Total compression attempts by strategy and status",
			},
			[]string{"strategy", "status"},
		),
		compressedTokens: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convo_compressed_tokens_total",
			Help: "Total tokens reclaimed by successful compressions",
		}),
		evictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convo_evictions_total",
			Help: "Total conversations removed by capacity-based batch eviction",
		}),
		reapsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convo_reaps_total",
			Help: "Total empty conversations removed by periodic reaping",
		}),
		trimsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convo_trims_total",
			Help: "Total hard-cap fallback trims applied during updates",
		}),
		lockTimeoutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convo_lock_timeouts_total",
			Help: "Total mutations abandoned after lock acquisition timed out",
		}),
		curatedItemsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convo_curated_items_total",
			Help: "Total invalid items dropped by the curation filter",
		}),
	}
}

// SetConversations records the current store size.
func (r *Recorder) SetConversations(n int) {
	if r == nil {
		return
	}
	r.conversations.Set(float64(n))
}

// ObserveUpdate records one update operation.
func (r *Recorder) ObserveUpdate(success bool) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	r.updatesTotal.WithLabelValues(status).Inc()
}

// ObserveCompression records one compression attempt. reclaimedTokens is the
// token count difference on success, ignored on failure.
func (r *Recorder) ObserveCompression(strategy string, success bool, reclaimedTokens int) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	r.compressionsTotal.WithLabelValues(strategy, status).Inc()
	if success && reclaimedTokens > 0 {
		r.compressedTokens.Add(float64(reclaimedTokens))
	}
}

// AddEvictions records conversations removed by batch eviction.
func (r *Recorder) AddEvictions(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.evictionsTotal.Add(float64(n))
}

// AddReaps records conversations removed by periodic reaping.
func (r *Recorder) AddReaps(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.reapsTotal.Add(float64(n))
}

// IncTrim records one hard-cap fallback trim.
func (r *Recorder) IncTrim() {
	if r == nil {
		return
	}
	r.trimsTotal.Inc()
}

// IncLockTimeout records one abandoned mutation.
func (r *Recorder) IncLockTimeout() {
	if r == nil {
		return
	}
	r.lockTimeoutsTotal.Inc()
}

// AddCuratedItems records invalid items dropped during curation.
func (r *Recorder) AddCuratedItems(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.curatedItemsTotal.Add(float64(n))
}
