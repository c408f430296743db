package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applicationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobboard",
			Subsystem: "workflow",
			Name:      "applications_created_total",
			Help:      "Number of job applications created.",
		},
	)

	statusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobboard",
			Subsystem: "workflow",
			Name:      "status_changes_total",
			Help:      "Number of application status updates by target status.",
		},
		[]string{"status"},
	)

	notificationsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobboard",
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Application events published to user channels.",
		},
		[]string{"event"},
	)
)

// ApplicationCreated 记录一次成功投递。
func ApplicationCreated() {
	applicationsCreatedTotal.Inc()
}

// StatusChanged 记录一次状态更新。
func StatusChanged(status string) {
	statusChangesTotal.WithLabelValues(status).Inc()
}

// NotificationPublished 记录一次推送到 Redis 频道的通知。
func NotificationPublished(event string) {
	notificationsPublishedTotal.WithLabelValues(event).Inc()
}
