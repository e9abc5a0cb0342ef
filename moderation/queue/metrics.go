package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_review_queue_depth",
	Help: "Number of items currently awaiting human review",
})

var escalationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_queue_escalation_count",
	Help: "Number of queue item escalations, by resulting priority",
}, []string{"priority"})
