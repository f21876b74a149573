// Code generated by ogen, DO NOT EDIT.

package oas

import (
	"context"

	ht "github.com/ogen-go/ogen/http"
)

// UnimplementedHandler is no-op Handler which returns http.ErrNotImplemented.
type UnimplementedHandler struct{}

var _ Handler = UnimplementedHandler{}

// CreateKey implements createKey operation.
//
// An empty body selects the default quota. The full secret is returned
// only in this response.
//
// POST /api-keys
func (UnimplementedHandler) CreateKey(ctx context.Context, req OptCreateKeyRequest) (r *CreatedKey, _ error) {
	return r, ht.ErrNotImplemented
}

// ListKeys implements listKeys operation.
//
// List keys with secrets masked.
//
// GET /api-keys
func (UnimplementedHandler) ListKeys(ctx context.Context) (r *KeyList, _ error) {
	return r, ht.ErrNotImplemented
}

// RevokeKey implements revokeKey operation.
//
// Answers 404 when no key matches.
//
// DELETE /api-keys/{secret}
func (UnimplementedHandler) RevokeKey(ctx context.Context, params RevokeKeyParams) (r *Message, _ error) {
	return r, ht.ErrNotImplemented
}
