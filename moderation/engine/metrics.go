package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "warden_analysis_duration_sec",
	Help: "Duration of content analysis (providers + rules + merge)",
})

var analysisFailCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_analysis_failopen_count",
	Help: "Number of analyses that failed open to a safe allow result",
})

var analysisActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_analysis_action_count",
	Help: "Number of completed analyses, by resulting action",
}, []string{"action"})

var reportCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_report_count",
	Help: "Number of submitted reports, by severity",
}, []string{"severity"})

var reviewActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_review_action_count",
	Help: "Number of processed review actions, by action and outcome",
}, []string{"action", "outcome"})
