// Package otel exposes engine counters through an OpenTelemetry meter,
// for hosts that already run an OTel pipeline instead of a Prometheus
// scrape endpoint.
package otel
