// Package errors provides structured errors with machine-readable codes
// that survive a round trip through gRPC status details.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Plan and scenario errors
	CodePlanInvalid      Code = "PLAN_INVALID"
	CodeScenarioNotFound Code = "SCENARIO_NOT_FOUND"

	// Configuration errors
	CodeConfigInvalid        Code = "CONFIG_INVALID"
	CodeTransportUnsupported Code = "TRANSPORT_UNSUPPORTED"

	// Gateway errors
	CodeGatewayUnavailable Code = "GATEWAY_UNAVAILABLE"
	CodeGatewayRejected    Code = "GATEWAY_REJECTED"
	CodeGatewayThrottled   Code = "GATEWAY_THROTTLED"

	// Entity errors reported by the gateway
	CodeUserNotFound    Code = "USER_NOT_FOUND"
	CodeAccountNotFound Code = "ACCOUNT_NOT_FOUND"
	CodeCardNotFound    Code = "CARD_NOT_FOUND"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeStorageFailed Code = "STORAGE_FAILED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodePlanInvalid,
		CodeConfigInvalid,
		CodeTransportUnsupported,
		CodeGatewayRejected:
		return codes.InvalidArgument

	// NotFound - resource doesn't exist
	case CodeScenarioNotFound,
		CodeUserNotFound,
		CodeAccountNotFound,
		CodeCardNotFound,
		CodeNotFound:
		return codes.NotFound

	case CodeGatewayUnavailable:
		return codes.Unavailable

	case CodeGatewayThrottled:
		return codes.ResourceExhausted

	default:
		return codes.Internal
	}
}
