package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/keygate/internal/authgate"
	"github.com/xenking/keygate/internal/backend"
	"github.com/xenking/keygate/internal/domain/apikey"
)

// Generate forwards a completion request.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	h.forwardPrompt(w, r, "/api/generate")
}

// Embeddings forwards an embeddings request.
func (h *Handler) Embeddings(w http.ResponseWriter, r *http.Request) {
	h.forwardPrompt(w, r, "/api/embeddings")
}

// ListModels forwards the model listing.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{
		Method: http.MethodGet,
		Path:   "/api/tags",
		Accept: r.Header.Get("Accept"),
	})
}

// DeleteModel forwards a model deletion.
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{
		Method: http.MethodDelete,
		Path:   "/api/tags/" + url.PathEscape(r.PathValue("model")),
		Accept: r.Header.Get("Accept"),
	})
}

// forwardPrompt validates that the body names a model and a prompt and
// forwards it unchanged.
func (h *Handler) forwardPrompt(w http.ResponseWriter, r *http.Request, path string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "error", msgBodyTooLarge)
			return
		}
		writeError(w, r, errors.Wrap(err, "read request body"))
		return
	}
	if err := validatePrompt(body); err != nil {
		writeError(w, r, err)
		return
	}

	h.forward(w, r, backend.Request{
		Method:      http.MethodPost,
		Path:        path,
		ContentType: "application/json",
		Accept:      r.Header.Get("Accept"),
		Body:        bytes.NewReader(body),
	})
}

// validatePrompt requires a JSON object with non-empty string "model" and
// "prompt" fields. Other fields are not inspected.
func validatePrompt(body []byte) error {
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return &apikey.BadRequestError{Message: msgInvalidBody}
	}

	var model, prompt string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "model", "prompt":
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			if key == "model" {
				model = v
			} else {
				prompt = v
			}
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return &apikey.BadRequestError{Message: msgInvalidBody}
	}
	if model == "" || prompt == "" {
		return &apikey.BadRequestError{Message: msgMissingParams}
	}
	return nil
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, req backend.Request) {
	resp, err := h.backend.Do(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if err := relay(w, resp); err != nil && r.Context().Err() == nil {
		// Headers are gone; all that is left is to record the broken stream.
		fields := []zap.Field{
			zap.Error(err),
			zap.Int("status", resp.StatusCode),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
		}
		if adm, ok := authgate.FromContext(r.Context()); ok {
			fields = append(fields, zap.String("key_id", adm.KeyID))
		}
		zctx.From(r.Context()).Warn("Relay interrupted", fields...)
	}
}

// hopHeaders are connection-scoped and never relayed.
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Content-Length":      {},
}

// relay copies the backend response, flushing after every chunk so that
// streamed generations reach the caller as they are produced.
func relay(w http.ResponseWriter, resp *http.Response) error {
	dst := w.Header()
	for k, vs := range resp.Header {
		k = textproto.CanonicalMIMEHeaderKey(k)
		if _, hop := hopHeaders[k]; hop {
			continue
		}
		if _, set := dst[k]; set {
			continue
		}
		dst[k] = append([]string(nil), vs...)
	}
	w.WriteHeader(resp.StatusCode)

	rc := http.NewResponseController(w)
	buf := make([]byte, 32<<10)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return errors.Wrap(werr, "write response")
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return errors.Wrap(ferr, "flush response")
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read backend response")
		}
	}
}
