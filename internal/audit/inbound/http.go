package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/audit", end.List)
	r.GET("/api/v1/audit/:id", end.Get)
}
