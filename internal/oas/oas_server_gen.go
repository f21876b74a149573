// Code generated by ogen, DO NOT EDIT.

package oas

import (
	"context"
)

// Handler handles operations described by OpenAPI v3 specification.
type Handler interface {
	// CreateKey implements createKey operation.
	//
	// An empty body selects the default quota. The full secret is returned
	// only in this response.
	//
	// POST /api-keys
	CreateKey(ctx context.Context, req OptCreateKeyRequest) (*CreatedKey, error)
	// ListKeys implements listKeys operation.
	//
	// List keys with secrets masked.
	//
	// GET /api-keys
	ListKeys(ctx context.Context) (*KeyList, error)
	// RevokeKey implements revokeKey operation.
	//
	// Answers 404 when no key matches.
	//
	// DELETE /api-keys/{secret}
	RevokeKey(ctx context.Context, params RevokeKeyParams) (*Message, error)
}

// Server implements http server based on OpenAPI v3 specification and
// calls Handler to handle requests.
type Server struct {
	h   Handler
	sec SecurityHandler
	baseServer
}

// NewServer creates new Server.
func NewServer(h Handler, sec SecurityHandler, opts ...ServerOption) (*Server, error) {
	s, err := newServerConfig(opts...).baseServer()
	if err != nil {
		return nil, err
	}
	return &Server{
		h:          h,
		sec:        sec,
		baseServer: s,
	}, nil
}
