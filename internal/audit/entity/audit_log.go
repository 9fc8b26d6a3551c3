package entity

import (
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/valueobject"
)

// AuditLog is one persisted OTP lifecycle event.
type AuditLog struct {
	ID        int64
	Event     string
	Email     string
	IPAddress string
	UserAgent string
	Device    string
	Metadata  valueobject.JSONMap
	CreatedAt time.Time
}

// AuditLogFilter narrows a listing. Zero values mean "no constraint".
type AuditLogFilter struct {
	Email  string
	Event  string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
