package event

import "time"

const AuditEventDestination string = "otp_audit_event"
const AuditEventConsumerRecorder string = "otp_audit_event_recorder"

// AuditEventMessage is one OTP lifecycle event to be persisted by the audit module.
type AuditEventMessage struct {
	EventID    string         `json:"event_id"`
	Event      string         `json:"event"`
	Email      string         `json:"email"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	Metadata   map[string]any `json:"metadata"`
	OccurredAt time.Time      `json:"occurred_at"`
}
