package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/audit/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) RecordAuditEvent(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "RecordAuditEvent")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: audit event", "msg_body", string(body))

	var payload event.AuditEventMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of audit event", "msg_body", string(body), "error", err)
		return nil
	}

	return h.uc.Record(ctx, usecase.RecordInput{
		EventID:    payload.EventID,
		Event:      payload.Event,
		Email:      payload.Email,
		IPAddress:  payload.IPAddress,
		UserAgent:  payload.UserAgent,
		Metadata:   payload.Metadata,
		OccurredAt: payload.OccurredAt,
	})
}
