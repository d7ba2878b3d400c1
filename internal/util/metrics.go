package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CleanupsRunTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_cleanups_total",
		Help: "Total number of cart cleanup passes run",
	}, []string{"trigger"})

	CleanupsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_cleanups_failed_total",
		Help: "Total number of cleanup passes that ended in failure",
	}, []string{"reason"})

	ItemsFixedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_fixed_total",
		Help: "Total number of cart items auto-corrected",
	})

	ItemsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_removed_total",
		Help: "Total number of unrecoverable cart items dropped",
	})

	ItemsMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_merged_total",
		Help: "Total number of duplicate cart items merged",
	})

	CartsClearedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carts_cleared_total",
		Help: "Total number of unparseable cart blobs removed",
	})

	EmergencyResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_emergency_resets_total",
		Help: "Total number of emergency cart resets",
	})

	CorruptionDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_corruption_detected_total",
		Help: "Total number of carts flagged by the corruption detector",
	}, []string{"source"})

	CatalogBackfillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_catalog_backfills_total",
		Help: "Total number of catalog price backfill attempts",
	}, []string{"result"})

	CleanupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_cleanup_latency_seconds",
		Help:    "Latency of cart cleanup passes",
		Buckets: prometheus.DefBuckets,
	})

	ScanLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_scan_latency_seconds",
		Help:    "Latency of periodic corruption scans",
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
