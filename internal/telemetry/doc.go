// Package telemetry wires structured logging and Prometheus metrics for the
// server and the CLI.
package telemetry
