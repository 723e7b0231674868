// Package server implements the local control API of the translator client.
// It exposes recording and replay controls, status and configuration endpoints,
// a websocket stream of display events and Prometheus metrics.
package server
