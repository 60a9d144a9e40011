package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/temirov/auditdesk/internal/apiclient"
)

// Metric names.
const (
	MetricRequestsTotal          = "auditdesk_api_requests_total"
	MetricRequestDurationSeconds = "auditdesk_api_request_duration_seconds"
	MetricRequestsInFlight       = "auditdesk_api_requests_in_flight"

	outcomeSuccessConstant            = "success"
	outcomeFailureConstant            = "failure"
	transportStatusLabelConstant      = "transport"
	operationLabelConstant            = "operation"
	outcomeLabelConstant              = "outcome"
	commandGroupingLabelConstant      = "command"
	statusLabelConstant               = "status"
	pushGatewayMissingMessageConstant = "pushgateway url not configured"
	pushJobMissingMessageConstant     = "pushgateway job name not configured"
)

var (
	// ErrPushGatewayNotConfigured indicates a push was requested without a gateway address.
	ErrPushGatewayNotConfigured = errors.New(pushGatewayMissingMessageConstant)
	// ErrPushJobNotConfigured indicates a push was requested without a job name.
	ErrPushJobNotConfigured = errors.New(pushJobMissingMessageConstant)
)

// Metrics implements apiclient.RequestObserver with Prometheus collectors.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRequestsTotal,
				Help: "Total number of audit service requests by operation, outcome and status",
			},
			[]string{operationLabelConstant, outcomeLabelConstant, statusLabelConstant},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRequestDurationSeconds,
				Help:    "Audit service request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{operationLabelConstant},
		),
		requestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricRequestsInFlight,
				Help: "Audit service requests currently awaiting a response",
			},
		),
	}
}

// Register registers every collector with the registerer.
func (metrics *Metrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{metrics.requestsTotal, metrics.requestDuration, metrics.requestsInFlight} {
		if registerError := registerer.Register(collector); registerError != nil {
			return registerError
		}
	}
	return nil
}

// RequestStarted implements apiclient.RequestObserver.
func (metrics *Metrics) RequestStarted(apiclient.RequestEvent) {
	metrics.requestsInFlight.Inc()
}

// RequestCompleted implements apiclient.RequestObserver.
func (metrics *Metrics) RequestCompleted(event apiclient.RequestEvent, statusCode int, duration time.Duration) {
	metrics.requestsInFlight.Dec()
	metrics.requestsTotal.WithLabelValues(string(event.Operation), outcomeSuccessConstant, strconv.Itoa(statusCode)).Inc()
	metrics.requestDuration.WithLabelValues(string(event.Operation)).Observe(duration.Seconds())
}

// RequestFailed implements apiclient.RequestObserver.
func (metrics *Metrics) RequestFailed(event apiclient.RequestEvent, failure error, duration time.Duration) {
	metrics.requestsInFlight.Dec()
	metrics.requestsTotal.WithLabelValues(string(event.Operation), outcomeFailureConstant, failureStatus(failure)).Inc()
	metrics.requestDuration.WithLabelValues(string(event.Operation)).Observe(duration.Seconds())
}

func failureStatus(failure error) string {
	var apiError apiclient.APIError
	if errors.As(failure, &apiError) {
		return strconv.Itoa(apiError.StatusCode)
	}
	return transportStatusLabelConstant
}

// Pusher delivers a registry to a Prometheus Pushgateway once a command finishes.
type Pusher struct {
	gatewayURL string
	jobName    string
	gatherer   prometheus.Gatherer
	httpClient *http.Client
}

// NewPusher validates the gateway settings.
func NewPusher(gatewayURL string, jobName string, gatherer prometheus.Gatherer, httpClient *http.Client) (*Pusher, error) {
	trimmedURL := strings.TrimSpace(gatewayURL)
	if len(trimmedURL) == 0 {
		return nil, ErrPushGatewayNotConfigured
	}
	trimmedJob := strings.TrimSpace(jobName)
	if len(trimmedJob) == 0 {
		return nil, ErrPushJobNotConfigured
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Pusher{gatewayURL: trimmedURL, jobName: trimmedJob, gatherer: gatherer, httpClient: httpClient}, nil
}

// Push sends the gathered metrics, grouped by command name.
func (pusher *Pusher) Push(executionContext context.Context, commandName string) error {
	return push.New(pusher.gatewayURL, pusher.jobName).
		Client(pusher.httpClient).
		Gatherer(pusher.gatherer).
		Grouping(commandGroupingLabelConstant, commandName).
		PushContext(executionContext)
}
