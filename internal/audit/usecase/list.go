package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/audit/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100

	// maxPage keeps (page-1)*pageSize inside a positive OFFSET.
	maxPage = math.MaxInt32 / maxPageSize
)

// timeLayouts are tried in order for the from/to filters. A bare date means
// midnight UTC of that day.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

type ListInput struct {
	Email    string
	Event    string
	From     string
	To       string
	Page     int
	PageSize int
}

type ListOutput struct {
	Items    []entity.AuditLog
	Page     int
	PageSize int
	Total    int64
}

type GetInput struct {
	ID int64 `validate:"gt=0"`
}

func parseFilterTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// List returns audit logs newest first. Unparsable time filters are ignored
// rather than rejected.
func (s *Usecase) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	page := in.Page
	if page < 1 {
		page = defaultPage
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = lo.Clamp(pageSize, 1, maxPageSize)
	page = min(page, maxPage)

	filter := entity.AuditLogFilter{
		Email:  strings.TrimSpace(in.Email),
		Event:  strings.ToUpper(strings.TrimSpace(in.Event)),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if t, ok := parseFilterTime(in.From); ok {
		filter.From = t
	} else if in.From != "" {
		slog.WarnContext(ctx, "ignoring unparsable from filter", "from", in.From)
	}
	if t, ok := parseFilterTime(in.To); ok {
		filter.To = t
	} else if in.To != "" {
		slog.WarnContext(ctx, "ignoring unparsable to filter", "to", in.To)
	}

	total, err := s.repoDB.CountAuditLogs(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count audit logs", "error", err)
		return nil, goerror.NewServer(err)
	}

	items := []entity.AuditLog{}
	if total > int64(filter.Offset) {
		items, err = s.repoDB.ListAuditLogs(ctx, filter)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo list audit logs", "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	return &ListOutput{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

func (s *Usecase) Get(ctx context.Context, in GetInput) (*entity.AuditLog, error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	log, err := s.repoDB.GetAuditLog(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("audit log not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get audit log", "id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return log, nil
}
