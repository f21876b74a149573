// Code generated by ogen, DO NOT EDIT.

package oas

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/ogenerrors"
)

// SecurityHandler is handler for security parameters.
type SecurityHandler interface {
	// HandleAdminKey handles AdminKey security.
	HandleAdminKey(ctx context.Context, operationName OperationName, t AdminKey) (context.Context, error)
}

func findAuthorization(h http.Header, prefix string) (string, bool) {
	v, ok := h["Authorization"]
	if !ok {
		return "", false
	}
	for _, vv := range v {
		scheme, value, ok := strings.Cut(vv, " ")
		if !ok || !strings.EqualFold(scheme, prefix) {
			continue
		}
		return value, true
	}
	return "", false
}

// operationRolesAdminKey is a private map storing roles per operation.
var operationRolesAdminKey = map[string][]string{
	CreateKeyOperation: []string{},
	ListKeysOperation:  []string{},
	RevokeKeyOperation: []string{},
}

// GetRolesForAdminKey returns the required roles for the given operation.
//
// This is useful for authorization scenarios where you need to know which roles
// are required for an operation.
//
// Example:
//
//	requiredRoles := GetRolesForAdminKey(AddPetOperation)
//
// Returns nil if the operation has no role requirements or if the operation is unknown.
func GetRolesForAdminKey(operation string) []string {
	roles, ok := operationRolesAdminKey[operation]
	if !ok {
		return nil
	}
	// Return a copy to prevent external modification
	result := make([]string, len(roles))
	copy(result, roles)
	return result
}

func (s *Server) securityAdminKey(ctx context.Context, operationName OperationName, req *http.Request) (context.Context, bool, error) {
	var t AdminKey
	const parameterName = "X-Admin-Key"
	value := req.Header.Get(parameterName)
	if value == "" {
		return ctx, false, nil
	}
	t.APIKey = value
	t.Roles = operationRolesAdminKey[operationName]
	rctx, err := s.sec.HandleAdminKey(ctx, operationName, t)
	if errors.Is(err, ogenerrors.ErrSkipServerSecurity) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return rctx, true, err
}

// SecuritySource is provider of security values (tokens, passwords, etc.).
type SecuritySource interface {
	// AdminKey provides AdminKey security value.
	AdminKey(ctx context.Context, operationName OperationName) (AdminKey, error)
}

func (s *Client) securityAdminKey(ctx context.Context, operationName OperationName, req *http.Request) error {
	t, err := s.sec.AdminKey(ctx, operationName)
	if err != nil {
		return errors.Wrap(err, "security source \"AdminKey\"")
	}
	req.Header.Set("X-Admin-Key", t.APIKey)
	return nil
}
