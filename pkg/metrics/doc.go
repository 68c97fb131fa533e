/*
Package metrics exposes Prometheus collectors for the worker: invocation
table size, container create/delete counts, fetch and execute latency,
readiness-prober attempt counts, and reaper cycle duration/evictions.

Handler returns the promhttp handler, served on the worker's internal
metrics mux alongside the gRPC listener.
*/
package metrics
