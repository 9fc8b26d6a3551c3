package inbound

import (
	"time"

	"github.com/shandysiswandi/otpgate/internal/audit/entity"
)

type AuditLog struct {
	ID        int64          `json:"id,string"`
	Event     string         `json:"event"`
	Email     string         `json:"email"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	Device    string         `json:"device"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

func toAuditLog(l entity.AuditLog, _ int) AuditLog {
	metadata := map[string]any(l.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	return AuditLog{
		ID:        l.ID,
		Event:     l.Event,
		Email:     l.Email,
		IPAddress: l.IPAddress,
		UserAgent: l.UserAgent,
		Device:    l.Device,
		Metadata:  metadata,
		CreatedAt: l.CreatedAt,
	}
}

type ListResponse struct {
	Items    []AuditLog
	Page     int
	PageSize int
	Total    int64
}

func (ListResponse) Message() string { return "Audit logs retrieved successfully" }

func (r ListResponse) Data() any { return r.Items }

func (r ListResponse) Meta() map[string]any {
	return map[string]any{
		"page":      r.Page,
		"page_size": r.PageSize,
		"total":     r.Total,
	}
}

type GetResponse struct {
	AuditLog
}

func (GetResponse) Message() string { return "Audit log retrieved successfully" }
