package entity

import "strings"

// AuditEvent names a step of the OTP lifecycle recorded in the audit trail.
type AuditEvent string

const (
	AuditEventRequested AuditEvent = "OTP_REQUESTED"
	AuditEventVerified  AuditEvent = "OTP_VERIFIED"
	AuditEventFailed    AuditEvent = "OTP_FAILED"
	AuditEventLocked    AuditEvent = "OTP_LOCKED"
)

func (e AuditEvent) String() string { return string(e) }

// AuditEventFromString returns the event for s, or "" when s is not known.
func AuditEventFromString(s string) AuditEvent {
	switch e := AuditEvent(strings.ToUpper(strings.TrimSpace(s))); e {
	case AuditEventRequested, AuditEventVerified, AuditEventFailed, AuditEventLocked:
		return e
	default:
		return ""
	}
}

// NormalizeEmail trims and lower-cases an identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
