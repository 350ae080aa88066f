// Package collector turns throttling state into Prometheus gauges and serves them.
//
// The collector package composes a client.Runner and client.Parser into the
// "throttled" collection unit, projects each decoded state onto the
// raspi_throttling_active and raspi_throttling_occurred gauge families of a shared,
// lock-guarded Registry, and encodes that registry to OpenMetrics text on each scrape.
// The occurred family latches: once a kind is observed it stays at 1 until restart.
package collector
