package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_notification_count",
	Help: "Number of notification dispatches, by event type and outcome",
}, []string{"type", "outcome"})
