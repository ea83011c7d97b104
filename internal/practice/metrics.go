package practice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "sessions_started_total",
		Help:      "Practice sessions created.",
	})
	limitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "limit_rejections_total",
		Help:      "Session starts refused by the daily quota.",
	})
	answersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "answers_submitted_total",
		Help:      "Answers recorded, by correctness.",
	}, []string{"correct"})
	sessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "sessions_completed_total",
		Help:      "Practice sessions completed.",
	})
	versionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "version_conflicts_total",
		Help:      "Writes rejected because the session changed underneath.",
	})
	completionScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "practice",
		Name:      "completion_score",
		Help:      "Score of completed sessions.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})
)
