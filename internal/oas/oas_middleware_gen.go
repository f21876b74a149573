// Code generated by ogen, DO NOT EDIT.

package oas

import (
	"github.com/ogen-go/ogen/middleware"
)

// Middleware is middleware type.
type Middleware = middleware.Middleware
