// Package metrics declares the Prometheus collectors of maritime-alarm.
//
// Collectors are registered on the default registry through promauto and
// served by the HTTP transport on /metrics. Record helpers keep label
// values consistent across callers.
package metrics
