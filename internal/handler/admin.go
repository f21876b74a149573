package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/ogenerrors"

	"github.com/xenking/keygate/internal/admin"
	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/oas"
)

// Compile-time checks ensuring adminAPI satisfies both ogen interfaces.
var (
	_ oas.Handler         = (*adminAPI)(nil)
	_ oas.SecurityHandler = (*adminAPI)(nil)
)

// adminAPI implements the generated admin server on top of admin.Controller.
type adminAPI struct {
	oas.UnimplementedHandler

	ctrl *admin.Controller
}

// HandleAdminKey checks the admin credential for every admin operation.
func (a *adminAPI) HandleAdminKey(ctx context.Context, _ oas.OperationName, t oas.AdminKey) (context.Context, error) {
	if !a.ctrl.Authorize(t.APIKey) {
		return ctx, apikey.ErrForbidden
	}
	return ctx, nil
}

// ListKeys returns all keys, masked.
func (a *adminAPI) ListKeys(ctx context.Context) (*oas.KeyList, error) {
	keys := a.ctrl.List(ctx)
	out := make([]oas.MaskedKey, len(keys))
	for i, k := range keys {
		out[i] = oas.MaskedKey{
			Key:             k.Key,
			CreatedAt:       k.CreatedAt.UTC(),
			ExpiresAt:       k.ExpiresAt.UTC(),
			Quota:           toOASQuota(k.Quota),
			TokensRemaining: k.TokensRemaining,
			Expired:         k.Expired,
		}
	}
	return &oas.KeyList{Keys: out}, nil
}

// CreateKey issues a new key. The secret appears in this response only.
// quota wins over the older rateLimit form; neither selects the defaults.
func (a *adminAPI) CreateKey(ctx context.Context, req oas.OptCreateKeyRequest) (*oas.CreatedKey, error) {
	var in admin.CreateRequest
	if body, ok := req.Get(); ok {
		if q, ok := body.Quota.Get(); ok {
			in.Quota = &apikey.Quota{Limit: q.Limit, WindowSeconds: q.WindowSeconds}
		} else if q, ok := body.RateLimit.Get(); ok {
			in.Quota = &apikey.Quota{Limit: q.Requests, WindowSeconds: q.Duration}
		}
	}

	created, err := a.ctrl.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return &oas.CreatedKey{
		Key:       created.Secret,
		CreatedAt: created.Record.CreatedAt.UTC(),
		ExpiresAt: created.Record.ExpiresAt.UTC(),
		Quota:     toOASQuota(created.Record.Quota),
	}, nil
}

// RevokeKey deletes the key named in the path.
func (a *adminAPI) RevokeKey(ctx context.Context, params oas.RevokeKeyParams) (*oas.Message, error) {
	if err := a.ctrl.Revoke(ctx, params.Secret); err != nil {
		return nil, err
	}
	return &oas.Message{Message: msgKeyDeleted}, nil
}

func toOASQuota(q apikey.Quota) oas.Quota {
	return oas.Quota{Limit: q.Limit, WindowSeconds: q.WindowSeconds}
}

// newAdminServer builds the generated admin server mounted under /admin.
func (h *Handler) newAdminServer() (*oas.Server, error) {
	api := &adminAPI{ctrl: h.admin}
	opts := []oas.ServerOption{
		oas.WithPathPrefix("/admin"),
		oas.WithErrorHandler(adminError),
		oas.WithNotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeMessage(w, http.StatusNotFound, "error", msgNotFound)
		}),
		oas.WithMethodNotAllowed(func(w http.ResponseWriter, _ *http.Request, allowed string) {
			w.Header().Set("Allow", allowed)
			writeMessage(w, http.StatusMethodNotAllowed, "error", msgMethodNotAllowed)
		}),
	}
	if h.tracerProvider != nil {
		opts = append(opts, oas.WithTracerProvider(h.tracerProvider))
	}
	if h.meterProvider != nil {
		opts = append(opts, oas.WithMeterProvider(h.meterProvider))
	}
	srv, err := oas.NewServer(api, api, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create admin server")
	}
	return srv, nil
}

// adminError maps errors raised by the generated server and by adminAPI to
// the gateway's error responses.
func adminError(_ context.Context, w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooLarge  *http.MaxBytesError
		security  *ogenerrors.SecurityError
		decodeReq *ogenerrors.DecodeRequestError
		decodePar *ogenerrors.DecodeParamsError
	)
	switch {
	case errors.As(err, &tooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "error", msgBodyTooLarge)
	case errors.As(err, &security):
		writeError(w, r, apikey.ErrForbidden)
	case errors.As(err, &decodeReq), errors.As(err, &decodePar):
		writeError(w, r, &apikey.BadRequestError{Message: msgInvalidBody})
	default:
		writeError(w, r, err)
	}
}

// limitBody caps admin request bodies before the generated decoder reads them.
func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
		next.ServeHTTP(w, r)
	})
}
