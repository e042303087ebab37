// Package server provides the HTTP scrape endpoint for the sidecar's
// Prometheus metrics.
package server
