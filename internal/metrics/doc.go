// Package metrics exposes Prometheus collectors for audit service calls and
// pushes them to a Pushgateway at the end of a command run.
package metrics
