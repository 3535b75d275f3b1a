package capability

import (
	"context"

	"github.com/paygate/seedforge/internal/seed/plan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/paygate/seedforge/internal/seed/capability"

// WithTracing wraps next so every call runs inside its own span. A nil
// tracer uses the global provider, which is a no-op until telemetry is set up.
func WithTracing(next Capability, tracer trace.Tracer) Capability {
	if next == nil {
		return nil
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &tracing{next: next, tracer: tracer}
}

type tracing struct {
	next   Capability
	tracer trace.Tracer
}

func (t *tracing) CreateUser(ctx context.Context) (UserID, error) {
	ctx, span := t.start(ctx, OpCreateUser)
	defer span.End()
	id, err := t.next.CreateUser(ctx)
	finishSpan(span, attribute.String("seed.user_id", string(id)), err)
	return id, err
}

func (t *tracing) OpenAccount(ctx context.Context, userID UserID, accountType plan.AccountType) (AccountID, error) {
	ctx, span := t.start(ctx, OpOpenAccount,
		attribute.String("seed.user_id", string(userID)),
		attribute.String("seed.account_type", string(accountType)),
	)
	defer span.End()
	id, err := t.next.OpenAccount(ctx, userID, accountType)
	finishSpan(span, attribute.String("seed.account_id", string(id)), err)
	return id, err
}

func (t *tracing) IssueCard(ctx context.Context, req CardRequest) (CardID, error) {
	ctx, span := t.start(ctx, OpIssueCard,
		attribute.String("seed.account_id", string(req.AccountID)),
		attribute.String("seed.card_type", string(req.Type)),
	)
	defer span.End()
	id, err := t.next.IssueCard(ctx, req)
	finishSpan(span, attribute.String("seed.card_id", string(id)), err)
	return id, err
}

func (t *tracing) CreateOperation(ctx context.Context, req OperationRequest) (OperationID, error) {
	ctx, span := t.start(ctx, OpCreateOperation,
		attribute.String("seed.account_id", string(req.AccountID)),
		attribute.String("seed.card_id", string(req.CardID)),
		attribute.String("seed.operation_kind", string(req.Kind)),
	)
	defer span.End()
	id, err := t.next.CreateOperation(ctx, req)
	finishSpan(span, attribute.String("seed.operation_id", string(id)), err)
	return id, err
}

func (t *tracing) start(ctx context.Context, op Op, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "seed."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func finishSpan(span trace.Span, created attribute.KeyValue, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return
	}
	span.SetAttributes(created)
}

var _ Capability = (*tracing)(nil)
