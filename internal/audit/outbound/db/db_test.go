package db

import (
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/audit/entity"
)

func TestBuildWhere(t *testing.T) {
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   entity.AuditLogFilter
		want     string
		wantArgs int
	}{
		{name: "empty", filter: entity.AuditLogFilter{}, want: "", wantArgs: 0},
		{name: "email", filter: entity.AuditLogFilter{Email: "a@x.com"}, want: " WHERE email = $1", wantArgs: 1},
		{
			name:     "all",
			filter:   entity.AuditLogFilter{Email: "a@x.com", Event: "OTP_FAILED", From: from, To: to},
			want:     " WHERE email = $1 AND event = $2 AND created_at >= $3 AND created_at <= $4",
			wantArgs: 4,
		},
		{name: "range only", filter: entity.AuditLogFilter{To: to}, want: " WHERE created_at <= $1", wantArgs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args := buildWhere(tt.filter)

			if got != tt.want {
				t.Fatalf("buildWhere() = %q, want %q", got, tt.want)
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("args = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}
