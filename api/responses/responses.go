package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/rs/zerolog/log"
)

// Success is the {"data": ...} body of every 2xx JSON response.
type Success struct {
	Data any `json:"data"`
}

// ErrorBody is the public shape of a failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Failure is the {"error": {...}} body of every non-2xx JSON response.
type Failure struct {
	Error ErrorBody `json:"error"`
}

// clientFacing lists the codes whose own message is safe to return as-is.
var clientFacing = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:   true,
	pkgerrors.CodeForbidden:    true,
	pkgerrors.CodeUnauthorized: true,
	pkgerrors.CodeNotFound:     true,
	pkgerrors.CodeConflict:     true,
	pkgerrors.CodeIdempotency:  true,
	pkgerrors.CodeRateLimit:    true,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Success{Data: data})
}

// WriteError maps err onto its public envelope and logs the full chain.
// Untyped errors become INTERNAL_ERROR and never leak their message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	body := ErrorBody{Code: string(typed.Code()), Message: meta.PublicMessage}
	if m := typed.Message(); m != "" && clientFacing[typed.Code()] {
		body.Message = m
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			body.Details = details
		}
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)
		ctx = logg.WithFields(ctx, map[string]any{
			"error":         dump.TopMessage,
			"error_code":    dump.Code,
			"error_chain":   dump.Chain,
			"pg_code":       dump.PGCode,
			"pg_detail":     dump.PGDetail,
			"pg_message":    dump.PGMessage,
			"pg_table":      dump.PGTable,
			"pg_constraint": dump.PGConstraint,
		})
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, Failure{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
