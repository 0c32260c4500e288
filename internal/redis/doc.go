// Package redis implements Redis-backed infrastructure.
//
// Provides the instrumented client (metrics + circuit breaker hooks), the
// EventBridge for cross-instance event fan-out via Pub/Sub, and the
// StateVault for save-state blobs.
package redis
