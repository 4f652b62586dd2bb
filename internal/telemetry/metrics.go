package telemetry

import "github.com/prometheus/client_golang/prometheus"

var RegistrationsStartedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "hacksprint",
		Subsystem: "registration",
		Name:      "started_total",
		Help:      "Total number of Register calls that issued an OTP.",
	},
)

var RegistrationsCommittedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "hacksprint",
		Subsystem: "registration",
		Name:      "committed_total",
		Help:      "Total number of teams committed after OTP verification.",
	},
)

var RegistrationErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hacksprint",
		Subsystem: "registration",
		Name:      "errors_total",
		Help:      "Total number of registration/verification failures by reason.",
	},
	[]string{"reason"},
)

var OTPIssuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "hacksprint",
		Subsystem: "otp",
		Name:      "issued_total",
		Help:      "Total number of OTP codes issued.",
	},
)

var OTPVerifyDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "hacksprint",
		Subsystem: "otp",
		Name:      "verify_duration_seconds",
		Help:      "Time to evaluate a VerifyOTP call, including commit and artifacts.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
)

var ArtifactPipelineFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hacksprint",
		Subsystem: "artifacts",
		Name:      "failures_total",
		Help:      "Total number of post-commit artifact pipeline failures by stage.",
	},
	[]string{"stage"},
)

var CheckInsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hacksprint",
		Subsystem: "checkin",
		Name:      "total",
		Help:      "Total number of check-in attempts by outcome.",
	},
	[]string{"outcome", "mode"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "hacksprint",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds, by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

var MailSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "hacksprint",
		Subsystem: "mailer",
		Name:      "send_duration_seconds",
		Help:      "Mailer send call duration in seconds, by message kind.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	},
	[]string{"kind", "outcome"},
)

// All returns all hacksprint-specific metrics for registration with the
// Prometheus registry.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		RegistrationsStartedTotal,
		RegistrationsCommittedTotal,
		RegistrationErrorsTotal,
		OTPIssuedTotal,
		OTPVerifyDuration,
		ArtifactPipelineFailuresTotal,
		CheckInsTotal,
		HTTPRequestDuration,
		MailSendDuration,
	}
}
