package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/ratelimit"
)

const (
	msgMissingParams    = "Missing required parameters: model and prompt are required"
	msgInvalidBody      = "request body must be a JSON object"
	msgBodyTooLarge     = "request body too large"
	msgNotFound         = "not found"
	msgMethodNotAllowed = "method not allowed"
	msgInternal         = "internal server error"
	msgForbidden        = "forbidden"
	msgRateLimited      = "rate limit exceeded"
	msgUnavailable      = "backend unavailable"
	msgBackendTimeout   = "backend timeout"
	msgMissingAPIKey    = "API key required"
	msgInvalidAPIKey    = "invalid API key"
	msgExpiredAPIKey    = "API key expired"
	msgKeyDeleted       = "API key deleted successfully"
	headerRetryAfter    = "Retry-After"
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemained  = "X-RateLimit-Remaining"
)

// writeJSON writes a JSON object whose fields are produced by fields.
func writeJSON(w http.ResponseWriter, status int, fields func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.Obj(fields)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already written; a failure here means the client left.
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, field, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Field(field, func(e *jx.Encoder) { e.Str(msg) })
	})
}

// writeError maps err to a status and a caller-safe message. Internal and
// upstream failures are logged; caller mistakes are not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		zctx.From(ctx).Debug("Client went away", zap.Error(err))
		return
	}

	status, msg := errorResponse(err)
	lg := zctx.From(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		lg.Error("Request failed", zap.Error(err), zap.Int("status", status))
	case status == http.StatusForbidden:
		lg.Warn("Admin credential rejected")
	}

	var limited *apikey.RateLimitedError
	if errors.As(err, &limited) {
		w.Header().Set(headerRateLimit, strconv.Itoa(limited.Limit))
		w.Header().Set(headerRateRemained, "0")
		w.Header().Set(headerRetryAfter, strconv.Itoa(retryAfterSeconds(limited.RetryAfter)))
	}
	writeMessage(w, status, "error", msg)
}

func errorResponse(err error) (int, string) {
	switch apikey.KindOf(err) {
	case apikey.KindBadRequest:
		var badReq *apikey.BadRequestError
		if errors.As(err, &badReq) {
			return http.StatusBadRequest, badReq.Message
		}
		return http.StatusBadRequest, apikey.ErrInvalidQuota.Error()
	case apikey.KindUnauthorized:
		switch {
		case errors.Is(err, apikey.ErrCredentialRequired):
			return http.StatusUnauthorized, msgMissingAPIKey
		case errors.Is(err, apikey.ErrCredentialExpired):
			return http.StatusUnauthorized, msgExpiredAPIKey
		default:
			return http.StatusUnauthorized, msgInvalidAPIKey
		}
	case apikey.KindForbidden:
		return http.StatusForbidden, msgForbidden
	case apikey.KindRateLimited:
		return http.StatusTooManyRequests, msgRateLimited
	case apikey.KindNotFound:
		return http.StatusNotFound, apikey.ErrKeyNotFound.Error()
	case apikey.KindUpstream:
		return http.StatusBadGateway, msgUnavailable
	case apikey.KindUpstreamTimeout:
		return http.StatusGatewayTimeout, msgBackendTimeout
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set(headerRateLimit, strconv.Itoa(d.Limit))
	w.Header().Set(headerRateRemained, strconv.Itoa(d.Remaining))
}

func retryAfterSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
