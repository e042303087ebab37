// Package pipeline implements the per-trigger call sequence against the
// inventory backend: dial, HTTP/2 and gRPC handshake, client build, and one
// ListImages call whose result count is published as a gauge.
//
// Each run is traced as one span with an event per completed stage, so a
// failed run's span shows exactly how far it got.
package pipeline
