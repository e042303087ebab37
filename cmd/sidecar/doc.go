// Package main is the entry point of the inventory sidecar.
//
// The sidecar counts the images held by the inventory backend on demand.
// Every SIGQUIT starts one traced run:
//
//	TCP connect → HTTP/2 + gRPC handshake → ListImages → gauge update
//
// The count is scraped from the metrics endpoint. SIGINT or SIGTERM stops
// the process.
//
// Configuration:
//   - Defaults for a local backend on 127.0.0.1:15441
//   - Optional YAML file (-config or SIDECAR_CONFIG)
//   - SIDECAR_* environment variables
//   - CLI flags (override everything else)
//
// Usage:
//
//	./sidecar -backend 127.0.0.1:15441 -metrics 127.0.0.1:33333
//
//	# Trigger a run, then read the gauge
//	kill -s SIGQUIT <pid>
//	curl http://127.0.0.1:33333/metrics
//
//	# Development mode (colored logs, debug level)
//	./sidecar -dev
package main
