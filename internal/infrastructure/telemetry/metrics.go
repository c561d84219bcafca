package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const metricNamespace = "billing"

// Operation results used as label values
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// BillingMetrics exports billing business metrics to Prometheus and, after
// Export, to an OpenTelemetry meter. Safe for concurrent use.
type BillingMetrics struct {
	registry *prometheus.Registry

	periodTransitions *prometheus.CounterVec
	readingsSubmitted *prometheus.CounterVec
	invoicesCreated   prometheus.Counter
	invoicesSkipped   prometheus.Counter
	paymentsTotal     *prometheus.CounterVec
	paymentsAllocated *prometheus.CounterVec
	paymentsToWallet  prometheus.Counter
	walletOperations  *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec

	otel *otelInstruments
}

// otelInstruments mirror the collectors on an OpenTelemetry meter
type otelInstruments struct {
	periodTransitions metric.Int64Counter
	readingsSubmitted metric.Int64Counter
	invoices          metric.Int64Counter
	payments          metric.Int64Counter
	paymentAmount     metric.Float64Counter
	walletOperations  metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewBillingMetrics creates the collectors on a private registry.
// withRuntime also registers the Go runtime and process collectors.
func NewBillingMetrics(withRuntime bool) *BillingMetrics {
	m := &BillingMetrics{
		registry: prometheus.NewRegistry(),
		periodTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "period_transitions_total",
			Help:      "Billing period transitions by source and target status",
		}, []string{"from", "to"}),
		readingsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "readings_submitted_total",
			Help:      "Meter readings submitted by resulting status",
		}, []string{"status"}),
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "invoices_generated_total",
			Help:      "Invoices created by generation runs",
		}),
		invoicesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "invoices_skipped_total",
			Help:      "Readings skipped by generation runs because an invoice already existed",
		}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded by method",
		}, []string{"method"}),
		paymentsAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "payments_allocated_amount_total",
			Help:      "Amount allocated to invoices by payment method",
		}, []string{"method"}),
		paymentsToWallet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "payments_wallet_amount_total",
			Help:      "Payment remainders credited to customer wallets",
		}),
		walletOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "wallet_operations_total",
			Help:      "Wallet operations by transaction type and result",
		}, []string{"type", "result"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Billing operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "operations_total",
			Help:      "Billing operations by result; errors carry the domain error code",
		}, []string{"operation", "result", "code"}),
	}

	m.registry.MustRegister(
		m.periodTransitions,
		m.readingsSubmitted,
		m.invoicesCreated,
		m.invoicesSkipped,
		m.paymentsTotal,
		m.paymentsAllocated,
		m.paymentsToWallet,
		m.walletOperations,
		m.operationLatency,
		m.operationsTotal,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Export mirrors every business metric onto meter. Call it before the
// metrics are shared.
func (m *BillingMetrics) Export(meter metric.Meter) error {
	var (
		inst otelInstruments
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	inst.periodTransitions = counter("billing.period.transitions", "Billing period transitions")
	inst.readingsSubmitted = counter("billing.readings.submitted", "Meter readings submitted")
	inst.invoices = counter("billing.invoices", "Invoice generation outcomes per reading")
	inst.payments = counter("billing.payments", "Payments recorded")
	inst.walletOperations = counter("billing.wallet.operations", "Wallet operations")

	var err error
	inst.paymentAmount, err = meter.Float64Counter("billing.payments.amount",
		metric.WithDescription("Payment amounts by destination"), metric.WithUnit("{currency}"))
	errs = append(errs, err)
	inst.operationDuration, err = meter.Float64Histogram("billing.operation.duration",
		metric.WithDescription("Billing operation latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(prometheus.DefBuckets...))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	m.otel = &inst
	return nil
}

// Registry exposes the underlying registry (for tests and extra collectors)
func (m *BillingMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *BillingMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *BillingMetrics) PeriodTransitioned(from, to string) {
	m.periodTransitions.WithLabelValues(from, to).Inc()
	if m.otel != nil {
		m.otel.periodTransitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("from", from), attribute.String("to", to)))
	}
}

func (m *BillingMetrics) ReadingSubmitted(status string) {
	m.readingsSubmitted.WithLabelValues(status).Inc()
	if m.otel != nil {
		m.otel.readingsSubmitted.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func (m *BillingMetrics) InvoicesGenerated(created, skipped int) {
	m.invoicesCreated.Add(float64(created))
	m.invoicesSkipped.Add(float64(skipped))
	if m.otel != nil {
		ctx := context.Background()
		m.otel.invoices.Add(ctx, int64(created), metric.WithAttributes(attribute.String("outcome", "created")))
		m.otel.invoices.Add(ctx, int64(skipped), metric.WithAttributes(attribute.String("outcome", "skipped")))
	}
}

func (m *BillingMetrics) PaymentRecorded(method string, allocated, toWallet decimal.Decimal) {
	m.paymentsTotal.WithLabelValues(method).Inc()
	m.paymentsAllocated.WithLabelValues(method).Add(allocated.InexactFloat64())
	if toWallet.IsPositive() {
		m.paymentsToWallet.Add(toWallet.InexactFloat64())
	}
	if m.otel == nil {
		return
	}
	ctx := context.Background()
	byMethod := attribute.String("method", method)
	m.otel.payments.Add(ctx, 1, metric.WithAttributes(byMethod))
	m.otel.paymentAmount.Add(ctx, allocated.InexactFloat64(),
		metric.WithAttributes(byMethod, attribute.String("destination", "invoice")))
	if toWallet.IsPositive() {
		m.otel.paymentAmount.Add(ctx, toWallet.InexactFloat64(),
			metric.WithAttributes(byMethod, attribute.String("destination", "wallet")))
	}
}

func (m *BillingMetrics) WalletOperation(txType, result string) {
	m.walletOperations.WithLabelValues(txType, result).Inc()
	if m.otel != nil {
		m.otel.walletOperations.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("type", txType), attribute.String("result", result)))
	}
}

// ObserveOperation records latency and outcome; domain errors are labelled by code
func (m *BillingMetrics) ObserveOperation(operation string, elapsed time.Duration, err error) {
	result, code := ResultSuccess, ""
	if err != nil {
		result, code = ResultError, "INTERNAL"
		var de *shared.DomainError
		if errors.As(err, &de) {
			code = de.Code
		}
	}
	m.operationLatency.WithLabelValues(operation, result).Observe(elapsed.Seconds())
	m.operationsTotal.WithLabelValues(operation, result, code).Inc()
	if m.otel != nil {
		m.otel.operationDuration.Record(context.Background(), elapsed.Seconds(), metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
			attribute.String("code", code)))
	}
}
