// Package messaging is a broker-agnostic publish/consume API.
//
// Use cases depend on Publisher and Consumer only. The concrete broker (NSQ,
// NATS, Kafka, or the in-process Memory driver) is picked at startup by
// NewFromDriver from configuration.
package messaging
