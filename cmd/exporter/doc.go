// Package main implements the Raspberry Pi throttling Prometheus exporter.
//
// This exporter runs `vcgencmd get_throttled` on every scrape of /metrics and exports
// the decoded undervoltage, frequency capping, throttling and soft temperature limit
// flags as OpenMetrics gauges on port 8021 (configurable).
package main
