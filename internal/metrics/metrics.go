// Package metrics 提供 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socrates_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "socrates_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	attachmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socrates_attachments_total",
			Help: "Total number of document attachment workflows",
		},
		[]string{"status"},
	)

	attachmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "socrates_attachment_duration_seconds",
			Help:    "Document attachment workflow duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	attachmentStepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socrates_attachment_step_errors_total",
			Help: "Attachment workflow errors by failing step",
		},
		[]string{"step"},
	)

	compensationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socrates_compensation_actions_total",
			Help: "Compensating cleanup actions by outcome",
		},
		[]string{"action", "status"},
	)
)

// RecordHTTPRequest 记录一次 HTTP 请求
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAttachment 记录一次挂载流程的最终结果
func RecordAttachment(status string, duration time.Duration) {
	attachmentsTotal.WithLabelValues(status).Inc()
	attachmentDuration.Observe(duration.Seconds())
}

// RecordAttachmentStepError 记录挂载流程中出错的步骤
func RecordAttachmentStepError(step string) {
	attachmentStepErrors.WithLabelValues(step).Inc()
}

// RecordCompensation 记录一次补偿清理动作
func RecordCompensation(action, status string) {
	compensationActions.WithLabelValues(action, status).Inc()
}
