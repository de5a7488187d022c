// Package otel publishes fangauth engine metrics as OpenTelemetry observable
// instruments.
//
// [New] registers an Int64ObservableCounter per engine counter and, per latency
// histogram, a cumulative bucket gauge keyed by an "le" attribute plus a count
// gauge. One callback reads [fangauth.Engine.MetricsSnapshot] per collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
