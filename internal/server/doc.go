// Package server assembles the sidecar.
//
// New builds every component from configuration:
//   - metric set and scrape endpoint
//   - tracer with the configured span reporter
//   - call pipeline against the inventory backend
//   - SIGQUIT trigger stream
//
// Run serves triggers one at a time until SIGINT or SIGTERM, then cancels
// any run in flight, closes the endpoint and the trace queue, and returns.
// Spans still queued at that point are not drained.
package server
