// Package grpcgateway implements the seed capability against the banking
// gateway's gRPC services. Calls are encoded as protobuf with messages built
// at runtime from a Schema.
package grpcgateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	platformerrors "github.com/paygate/seedforge/internal/platform/errors"
	platformgrpc "github.com/paygate/seedforge/internal/platform/grpc"
	"github.com/paygate/seedforge/internal/platform/timeouts"
	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/fakedata"
	"github.com/paygate/seedforge/internal/seed/plan"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CallError is a failed gateway call.
type CallError struct {
	Method string
	Code   codes.Code
	// Reason is the ErrorInfo reason attached by the gateway, if any.
	Reason  string
	Message string
	err     error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Method, e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, e.Code, e.Message)
}

// Unwrap returns the status error.
func (e *CallError) Unwrap() error {
	return e.err
}

// Temporary reports whether the call is worth retrying.
func (e *CallError) Temporary() bool {
	switch e.Code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger logs calls and dial progress.
func WithLogger(logf func(string, ...any)) Option {
	return func(c *Client) {
		c.logf = logf
	}
}

// WithTimeout bounds each call. Zero disables the per-call bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithSchema replaces the built-in gateway contract, for example with one
// loaded by LoadSchema.
func WithSchema(s *Schema) Option {
	return func(c *Client) {
		if s != nil {
			c.schema = s
		}
	}
}

// WithDialOptions replaces the dial options used by Dial.
func WithDialOptions(opts ...gogrpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = opts
	}
}

// Client calls the gateway over gRPC. It is safe for concurrent use.
type Client struct {
	conn        gogrpc.ClientConnInterface
	closer      func() error
	fake        *fakedata.Generator
	schema      *Schema
	logf        func(string, ...any)
	timeout     time.Duration
	dialOptions []gogrpc.DialOption
}

// New creates a Client on an existing connection.
func New(conn gogrpc.ClientConnInterface, fake *fakedata.Generator, opts ...Option) (*Client, error) {
	if conn == nil {
		return nil, errors.New("gRPC connection is required")
	}
	if fake == nil {
		return nil, errors.New("fake data generator is required")
	}
	c := &Client{
		conn:    conn,
		fake:    fake,
		timeout: timeouts.GRPCRequest,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.schema == nil {
		schema, err := BuiltinSchema()
		if err != nil {
			return nil, err
		}
		c.schema = schema
	}
	return c, nil
}

// Dial connects to the gateway at addr, waits for it to report healthy
// and returns a Client that owns the connection.
func Dial(ctx context.Context, addr string, fake *fakedata.Generator, opts ...Option) (*Client, error) {
	settings := &Client{}
	for _, opt := range opts {
		opt(settings)
	}
	conn, err := platformgrpc.Dial(ctx, platformgrpc.DialConfig{
		Addr:    addr,
		Timeout: timeouts.GRPCDial,
		Logf:    settings.logf,
		Options: settings.dialOptions,
	})
	if err != nil {
		return nil, err
	}
	c, err := New(conn, fake, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.closer = conn.Close
	return c, nil
}

// Close releases the connection when the Client was created by Dial.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// CreateUser implements capability.Capability.
func (c *Client) CreateUser(ctx context.Context) (capability.UserID, error) {
	profile := c.fake.User()
	id, err := c.create(ctx, CreateUserMethod, "user", []fieldValue{
		{"email", profile.Email},
		{"last_name", profile.LastName},
		{"first_name", profile.FirstName},
		{"middle_name", profile.MiddleName},
		{"phone_number", profile.PhoneNumber},
	})
	if err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpCreateUser, capability.UserID(id))
}

// OpenAccount implements capability.Capability.
func (c *Client) OpenAccount(ctx context.Context, userID capability.UserID, accountType plan.AccountType) (capability.AccountID, error) {
	method, err := AccountMethod(accountType)
	if err != nil {
		return "", err
	}
	id, err := c.create(ctx, method, "account", []fieldValue{{"user_id", string(userID)}})
	if err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpOpenAccount, capability.AccountID(id))
}

// IssueCard implements capability.Capability.
func (c *Client) IssueCard(ctx context.Context, req capability.CardRequest) (capability.CardID, error) {
	method, err := CardMethod(req.Type)
	if err != nil {
		return "", err
	}
	id, err := c.create(ctx, method, "card", []fieldValue{
		{"user_id", string(req.UserID)},
		{"account_id", string(req.AccountID)},
	})
	if err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpIssueCard, capability.CardID(id))
}

// CreateOperation implements capability.Capability.
func (c *Client) CreateOperation(ctx context.Context, req capability.OperationRequest) (capability.OperationID, error) {
	method, err := OperationMethod(req.Kind)
	if err != nil {
		return "", err
	}
	payload := c.fake.Operation(req.Kind, string(req.CardID), string(req.AccountID))
	fields := []fieldValue{
		{"status", payload.Status},
		{"amount", payload.Amount.Decimal()},
		{"card_id", payload.CardID},
		{"account_id", payload.AccountID},
	}
	if payload.Category != "" {
		fields = append(fields, fieldValue{"category", payload.Category})
	}
	id, err := c.create(ctx, method, "operation", fields)
	if err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpCreateOperation, capability.OperationID(id))
}

// create sends one create call and returns the id of the created entity.
func (c *Client) create(ctx context.Context, method, entity string, fields []fieldValue) (string, error) {
	input, output, err := c.schema.Method(method)
	if err != nil {
		return "", err
	}
	in := dynamicpb.NewMessage(input)
	if err := setFields(in, fields); err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	out := dynamicpb.NewMessage(output)
	if err := c.invoke(ctx, method, in, out); err != nil {
		return "", err
	}
	return entityID(out, entity), nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out *dynamicpb.Message) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.logf != nil {
		c.logf("call: %s", method)
	}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return callError(method, err)
	}
	return nil
}

// callError converts a status error into a CallError, marking transient
// codes retryable.
func callError(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	callErr := &CallError{Method: method, Code: st.Code(), Message: st.Message(), err: err}
	if domainErr := platformerrors.FromGRPC(err); domainErr != nil && domainErr.Code != platformerrors.CodeUnknown {
		callErr.Reason = string(domainErr.Code)
	}
	if callErr.Temporary() {
		return capability.MarkRetryable(callErr)
	}
	return callErr
}

var _ capability.Capability = (*Client)(nil)
