// Package metrics 汇总连胜引擎对外暴露的 Prometheus 指标。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 重算结果标签。
const (
	OutcomeOK          = "ok"
	OutcomeUnchanged   = "unchanged"
	OutcomeUnavailable = "unavailable"
	OutcomeCorrupt     = "corrupt"
	OutcomeConflict    = "conflict"
	OutcomeError       = "error"
)

var (
	recomputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifelog",
		Subsystem: "streak",
		Name:      "recomputations_total",
		Help:      "Daily streak record recomputations by outcome.",
	}, []string{"outcome"})

	recomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lifelog",
		Subsystem: "streak",
		Name:      "recompute_duration_seconds",
		Help:      "Time spent recomputing a single day.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	milestonesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifelog",
		Subsystem: "streak",
		Name:      "milestones_awarded_total",
		Help:      "Milestones awarded, labelled by threshold days.",
	}, []string{"days"})

	bonusPoints = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lifelog",
		Subsystem: "streak",
		Name:      "bonus_points_awarded_total",
		Help:      "Bonus points credited by milestone awards.",
	})

	scanCapHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lifelog",
		Subsystem: "streak",
		Name:      "scan_cap_hits_total",
		Help:      "Backward current-streak scans stopped by the lookback cap.",
	})

	corruptRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lifelog",
		Subsystem: "streak",
		Name:      "corrupt_records_total",
		Help:      "Persisted daily records that failed validation on read.",
	})
)

// ObserveRecompute 记录一次单日重算。
func ObserveRecompute(outcome string, elapsed time.Duration) {
	recomputations.WithLabelValues(outcome).Inc()
	recomputeDuration.Observe(elapsed.Seconds())
}

// ObserveMilestone 记录一次里程碑发放。
func ObserveMilestone(days, points int) {
	milestonesAwarded.WithLabelValues(strconv.Itoa(days)).Inc()
	bonusPoints.Add(float64(points))
}

// ObserveScanCap 记录一次触顶的回溯扫描。
func ObserveScanCap() {
	scanCapHits.Inc()
}

// ObserveCorruptRecord 记录一次读到损坏记录。
func ObserveCorruptRecord() {
	corruptRecords.Inc()
}
