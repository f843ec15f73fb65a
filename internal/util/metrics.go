package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders committed by the placement transaction",
	})

	OrdersDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_duplicate_total",
		Help: "Total number of submissions resolved to an existing order by payment reference",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected placement attempts",
	}, []string{"reason"})

	PlacementRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placement_retries_total",
		Help: "Total number of placement transaction retries after write conflicts",
	})

	PlacementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "placement_latency_seconds",
		Help:    "Latency of the full order placement transaction including retries",
		Buckets: prometheus.DefBuckets,
	})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of committed order status transitions",
	}, []string{"from", "to"})

	InvalidTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_invalid_transitions_total",
		Help: "Total number of rejected order status transitions",
	})

	StockRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_restored_units_total",
		Help: "Total units of stock restored by cancellation compensation",
	})

	SalesReportLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_report_latency_seconds",
		Help:    "Latency of sales report aggregation",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
