/*
Package config loads sidecar configuration.

Sources, lowest precedence first:

 1. Default() values (backend 127.0.0.1:15441, metrics 127.0.0.1:33333/metrics)
 2. an optional YAML file
 3. SIDECAR_* environment variables

Command-line flags in cmd/sidecar are applied on top by the caller.

Environment variables follow the struct layout:

	SIDECAR_BACKEND_ADDR        SIDECAR_BACKEND_AUTHORITY
	SIDECAR_METRICS_ADDR        SIDECAR_METRICS_PATH
	SIDECAR_METRICS_NAMESPACE
	SIDECAR_TRACING_SERVICE_NAME SIDECAR_TRACING_EXPORTER
	SIDECAR_TRACING_ENDPOINT    SIDECAR_TRACING_QUEUE_SIZE
	SIDECAR_TRACING_EXPORT_TIMEOUT
	SIDECAR_LOGGING_LEVEL       SIDECAR_LOGGING_DEVELOPMENT
*/
package config
