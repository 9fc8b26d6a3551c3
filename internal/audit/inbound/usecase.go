package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/audit/entity"
	"github.com/shandysiswandi/otpgate/internal/audit/usecase"
)

type uc interface {
	Record(ctx context.Context, in usecase.RecordInput) error
	List(ctx context.Context, in usecase.ListInput) (*usecase.ListOutput, error)
	Get(ctx context.Context, in usecase.GetInput) (*entity.AuditLog, error)
}
