package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла заказов.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated   prometheus.Counter
	ordersCancelled prometheus.Counter
	statusUpdates   prometheus.Counter
	createFailures  *prometheus.CounterVec

	// Гистограммы времени выполнения
	createDuration  prometheus.Histogram
	catalogDuration *prometheus.HistogramVec
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Total number of orders cancelled by their owner",
		}),
		statusUpdates: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_status_updates_total",
			Help: "Total number of administrative status updates",
		}),
		createFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_create_failures_total",
			Help: "Total number of failed order creations grouped by reason",
		}, []string{"reason"}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orders_create_duration_seconds",
			Help:    "Duration of order creation including catalog lookups",
			Buckets: prometheus.DefBuckets,
		}),
		catalogDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_catalog_lookup_duration_seconds",
			Help:    "Duration of catalog lookups grouped by result",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
	}
}

// OrderCreated фиксирует успешное создание заказа.
func (m *OrderMetrics) OrderCreated(duration time.Duration) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.createDuration.Observe(duration.Seconds())
}

// CreateFailed фиксирует неуспешную попытку создания с причиной отказа.
func (m *OrderMetrics) CreateFailed(reason string) {
	if m == nil {
		return
	}
	m.createFailures.WithLabelValues(reason).Inc()
}

// OrderCancelled фиксирует отмену заказа владельцем.
func (m *OrderMetrics) OrderCancelled() {
	if m == nil {
		return
	}
	m.ordersCancelled.Inc()
}

// StatusUpdated фиксирует административную смену статуса.
func (m *OrderMetrics) StatusUpdated() {
	if m == nil {
		return
	}
	m.statusUpdates.Inc()
}

// CatalogLookup фиксирует длительность обращения к каталогу.
func (m *OrderMetrics) CatalogLookup(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.catalogDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	counter := prometheus.NewCounter(opts)
	return register(registerer, counter).(prometheus.Counter)
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, labels)
	return register(registerer, vec).(*prometheus.CounterVec)
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	histogram := prometheus.NewHistogram(opts)
	return register(registerer, histogram).(prometheus.Histogram)
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	vec := prometheus.NewHistogramVec(opts, labels)
	return register(registerer, vec).(*prometheus.HistogramVec)
}

// register регистрирует collector, переиспользуя уже существующий при повторной регистрации.
func register(registerer prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	if err := registerer.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if ok := asAlreadyRegistered(err, &are); ok {
			return are.ExistingCollector
		}
		panic(fmt.Sprintf("failed to register collector: %v", err))
	}
	return collector
}

func asAlreadyRegistered(err error, target *prometheus.AlreadyRegisteredError) bool {
	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return false
	}
	*target = are
	return true
}
