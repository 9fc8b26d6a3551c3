package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/auth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// RequestOTP issues a one-time code for an email address.
func (h *HTTPEndpoint) RequestOTP(r *router.Request) (any, error) {
	var req RequestOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestOTP(r.Context(), usecase.RequestOTPInput{
		Email:     req.Email,
		IPAddress: r.ClientIP(),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return nil, err
	}

	return RequestOTPResponse{
		Email:         resp.Email,
		ExpirySeconds: resp.ExpirySeconds,
	}, nil
}

// VerifyOTP exchanges a valid code for a session.
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		Email:     req.Email,
		OTP:       req.OTP,
		IPAddress: r.ClientIP(),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return nil, err
	}

	return VerifyOTPResponse{
		User: User{
			ID:         resp.User.ID,
			Email:      resp.User.Email,
			FirstName:  resp.User.FirstName,
			LastName:   resp.User.LastName,
			IsActive:   resp.User.IsActive,
			DateJoined: resp.User.DateJoined,
		},
		Access:  resp.AccessToken,
		Refresh: resp.RefreshToken,
	}, nil
}

func (h *HTTPEndpoint) RefreshToken(r *router.Request) (any, error) {
	var req RefreshTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RefreshToken(r.Context(), usecase.RefreshTokenInput{
		Refresh: req.Refresh,
	})
	if err != nil {
		return nil, err
	}

	return RefreshTokenResponse{
		Access:  resp.AccessToken,
		Refresh: resp.RefreshToken,
	}, nil
}
