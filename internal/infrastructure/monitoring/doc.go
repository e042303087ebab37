/*
Package monitoring holds the sidecar's Prometheus metrics.

# Overview

Metrics are registered on a private prometheus.Registry built once at
startup and passed by pointer to every writer (the call pipeline, the trace
exporter, the scrape middleware) and to the single reader (the metrics
server). Updates are the atomic primitive writes client_golang provides, so
no further coordination is needed.

# Headline series

  - <ns>_triggers_total: one increment per trigger, whatever the outcome
  - <ns>_inventory_images: overwritten by each successful inventory call
    only; failed runs leave the previous value in place

# Usage

	metrics, err := monitoring.NewMetrics("sidecar")
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics)
	// ... run the pipeline ...
	timer.Stop(monitoring.OutcomeCompleted)
*/
package monitoring
