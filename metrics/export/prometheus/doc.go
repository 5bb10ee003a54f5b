// Package prometheus exports engine counters in Prometheus text
// exposition format without pulling in a client library. Mount
// [Exporter.Handler] on the host's mux to scrape.
package prometheus
