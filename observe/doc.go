// Package observe provides observability primitives for dependency calls
// protected by the resilience layer.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into their client via
// the resilience hooks (OnStateChange, OnRetry) or the call middleware;
// nothing in the resilience core depends on this package.
package observe
