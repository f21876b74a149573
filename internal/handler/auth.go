package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xenking/keygate/internal/authgate"
	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/pkg/httpmiddleware"
)

// RequireAPIKey admits the request through the gate, spending one token of
// the presented key. Admitted requests carry the admission in their context.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adm, err := h.gate.Admit(r.Context(), r.Header.Get(HeaderAPIKey))
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpmiddleware.AddLogFields(r.Context(), zap.String("key_id", adm.KeyID))
		setRateLimitHeaders(w, adm.Decision)

		ctx := authgate.WithAdmission(r.Context(), adm)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests without the admin credential before any
// admin route is resolved.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.admin.Authorize(r.Header.Get(HeaderAdminKey)) {
			writeError(w, r, apikey.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
