package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/auth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

const publishAttempts uint64 = 3

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
	uuid   uid.StringID
	clock  clock.Clocker
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation, uuid uid.StringID, clk clock.Clocker) *Messaging {
	return &Messaging{client: client, ins: ins, uuid: uuid, clock: clk}
}

func (m *Messaging) PublishAuditEvent(ctx context.Context, msg usecase.AuditEvent) error {
	ctx, span := m.ins.Tracer("auth.outbound.mq").Start(ctx, "PublishAuditEvent")
	defer span.End()

	return m.publish(ctx, span, event.AuditEventDestination, event.AuditEventMessage{
		EventID:    m.uuid.Generate(),
		Event:      msg.Event.String(),
		Email:      msg.Email,
		IPAddress:  msg.IPAddress,
		UserAgent:  msg.UserAgent,
		Metadata:   msg.Metadata,
		OccurredAt: m.clock.Now().UTC(),
	})
}

func (m *Messaging) PublishOTPDelivery(ctx context.Context, msg usecase.OTPDeliveryEvent) error {
	ctx, span := m.ins.Tracer("auth.outbound.mq").Start(ctx, "PublishOTPDelivery")
	defer span.End()

	return m.publish(ctx, span, event.OTPDeliveryDestination, event.OTPDeliveryMessage{
		EventID:       m.uuid.Generate(),
		Email:         msg.Email,
		Code:          msg.Code,
		ExpirySeconds: msg.ExpirySeconds,
	})
}

// publish retries broker failures a few times with backoff. The event id is
// fixed before the first attempt so consumers can drop duplicates.
func (m *Messaging) publish(ctx context.Context, span trace.Span, destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	out := messaging.OutgoingMessage{
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(instrument.GetCorrelationID(ctx))}},
	}

	b := retry.WithMaxRetries(publishAttempts-1, retry.NewExponential(100*time.Millisecond))
	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := m.client.Publish(ctx, destination, out); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
