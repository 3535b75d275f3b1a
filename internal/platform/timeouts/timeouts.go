// Package timeouts defines shared timeout constants used by the seed tooling.
// Centralizing these values keeps the transports consistent and makes the
// durations discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the gateway over gRPC.
const GRPCDial = 2 * time.Second

// GRPCRequest caps the time allowed for a single gRPC gateway call.
const GRPCRequest = 10 * time.Second

// HTTPRequest caps the time allowed for a single HTTP gateway call.
const HTTPRequest = 10 * time.Second

// ReadHeader limits how long the metrics server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the metrics server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
