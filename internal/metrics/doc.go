// Package metrics exposes Prometheus instrumentation for the capture, encoding,
// backend exchange and control API paths.
package metrics
