package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics of the KYC engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	otpIssued        *prometheus.CounterVec
	otpVerifications *prometheus.CounterVec
	registrations    *prometheus.CounterVec
	kycDecisions     *prometheus.CounterVec
	signatories      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kyc_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		otpIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_otp_issued_total",
				Help: "Total OTP challenges issued.",
			},
			[]string{"type"},
		),
		otpVerifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_otp_verifications_total",
				Help: "Total OTP verification attempts by result.",
			},
			[]string{"type", "result"},
		),
		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_company_registrations_total",
				Help: "Total company registrations by outcome.",
			},
			[]string{"outcome"},
		),
		kycDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_decisions_total",
				Help: "Total KYC approvals and rejections.",
			},
			[]string{"status"},
		),
		signatories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_signatories_total",
				Help: "Total signatory uploads by result.",
			},
			[]string{"result"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrOtpIssued(otpType string) {
	m.otpIssued.WithLabelValues(otpType).Inc()
}

// IncrOtpVerification counts a verification with result one of verified,
// invalid, expired, exhausted or not_found.
func (m *Metrics) IncrOtpVerification(otpType, result string) {
	m.otpVerifications.WithLabelValues(otpType, result).Inc()
}

func (m *Metrics) IncrRegistration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrKycDecision(status string) {
	m.kycDecisions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrSignatory(result string) {
	m.signatories.WithLabelValues(result).Inc()
}

// OnboardingSnapshot is a point-in-time view of the onboarding counters.
type OnboardingSnapshot struct {
	OtpIssued           float64 `json:"otpIssued"`
	OtpVerified         float64 `json:"otpVerified"`
	OtpFailed           float64 `json:"otpFailed"`
	AutoRegistrations   float64 `json:"autoRegistrations"`
	ManualRegistrations float64 `json:"manualRegistrations"`
	KycApproved         float64 `json:"kycApproved"`
	KycRejected         float64 `json:"kycRejected"`
	RoleCacheHitRate    float64 `json:"roleCacheHitRate"`
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() *OnboardingSnapshot {
	var issued, verified, failed float64
	for _, t := range []string{"phone", "email"} {
		issued += getCounterValue(m.otpIssued, t)
		verified += getCounterValue(m.otpVerifications, t, "verified")
		for _, r := range []string{"invalid", "expired", "exhausted", "not_found"} {
			failed += getCounterValue(m.otpVerifications, t, r)
		}
	}

	hits := getCounterValue(m.cacheHits, "roles")
	misses := getCounterValue(m.cacheMisses, "roles")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &OnboardingSnapshot{
		OtpIssued:           issued,
		OtpVerified:         verified,
		OtpFailed:           failed,
		AutoRegistrations:   getCounterValue(m.registrations, "auto"),
		ManualRegistrations: getCounterValue(m.registrations, "manual"),
		KycApproved:         getCounterValue(m.kycDecisions, "approved"),
		KycRejected:         getCounterValue(m.kycDecisions, "rejected"),
		RoleCacheHitRate:    hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
