// Package metrics records sync run metrics in a private Prometheus registry.
//
// The CLI is a one-shot process, so nothing is served over HTTP. When a
// textfile path is configured the registry is written at the end of each
// run for node_exporter's textfile collector.
package metrics
