package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/audit/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) List(r *router.Request) (any, error) {
	resp, err := h.uc.List(r.Context(), usecase.ListInput{
		Email:    r.GetQuery("email"),
		Event:    r.GetQuery("event"),
		From:     r.GetQuery("from"),
		To:       r.GetQuery("to"),
		Page:     r.GetQueryInt("page", 0),
		PageSize: r.GetQueryInt("page_size", 0),
	})
	if err != nil {
		return nil, err
	}

	return ListResponse{
		Items:    lo.Map(resp.Items, toAuditLog),
		Page:     resp.Page,
		PageSize: resp.PageSize,
		Total:    resp.Total,
	}, nil
}

func (h *HTTPEndpoint) Get(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Get(r.Context(), usecase.GetInput{ID: id})
	if err != nil {
		return nil, err
	}

	return GetResponse{AuditLog: toAuditLog(*resp, 0)}, nil
}
