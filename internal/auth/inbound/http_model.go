package inbound

import (
	"net/http"
	"time"
)

type RequestOTPRequest struct {
	Email string `json:"email"`
}

type RequestOTPResponse struct {
	Email         string `json:"email"`
	ExpirySeconds int64  `json:"expiry_seconds"`
}

func (RequestOTPResponse) StatusCode() int { return http.StatusAccepted }

func (RequestOTPResponse) Message() string { return "OTP sent to your email" }

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
}

type VerifyOTPResponse struct {
	User    User   `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (VerifyOTPResponse) StatusCode() int { return http.StatusCreated }

func (VerifyOTPResponse) Message() string { return "OTP verified successfully" }

type RefreshTokenRequest struct {
	Refresh string `json:"refresh"`
}

type RefreshTokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (RefreshTokenResponse) Message() string { return "Token refreshed successfully" }
