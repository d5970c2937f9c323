package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	ResourceOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "resource_operations_total", Help: "CRUD operations by resource, operation and outcome."},
		[]string{"resource", "operation", "outcome"},
	)
	UploadedImages = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "uploaded_images_total", Help: "Number of images stored in object storage."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(ResourceOperations)
	reg.MustRegister(UploadedImages)
}

// ObserveResource counts one controller outcome ("success", "not_found",
// "invalid", "duplicate", "error").
func ObserveResource(resource, operation, outcome string) {
	ResourceOperations.WithLabelValues(resource, operation, outcome).Inc()
}
