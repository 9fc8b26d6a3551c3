package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

// envelope is the single response shape for every JSON endpoint.
type envelope struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	StatusCode int            `json:"status_code"`
	Data       any            `json:"data"`
	Meta       map[string]any `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response to json", "error", err)
	}
}

func writeFailure(w http.ResponseWriter, msg string, code int, data any) {
	if data == nil {
		data = map[string]any{}
	}
	writeJSON(w, envelope{Success: false, Message: msg, StatusCode: code, Data: data}, code)
}

func writeSuccess(w http.ResponseWriter, msg string, code int, data any, meta map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	writeJSON(w, envelope{Success: true, Message: msg, StatusCode: code, Data: data, Meta: meta}, code)
}

func encodeError(_ context.Context, w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeFailure(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	var data any
	var errValidate validator.V10ValidationError
	switch {
	case errors.As(err, &errValidate):
		data = errValidate.Values()
	case len(gerr.Fields()) > 0:
		data = gerr.Fields()
	case gerr.Data() != nil:
		data = gerr.Data()
	}

	writeFailure(w, gerr.Msg(), gerr.StatusCode(), data)
}

func encodeSuccess(_ context.Context, w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}

	if code == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	msg := "Request processed successfully"
	if m, ok := resp.(interface{ Message() string }); ok {
		msg = m.Message()
	}

	var meta map[string]any
	if m, ok := resp.(interface{ Meta() map[string]any }); ok {
		meta = m.Meta()
	}

	if d, ok := resp.(interface{ Data() any }); ok {
		resp = d.Data()
	}

	writeSuccess(w, msg, code, resp, meta)
}
