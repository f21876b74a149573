// Package oas holds the admin API server generated by ogen from
// api/openapi.yaml. Run go generate after changing the document.
package oas

//go:generate go run github.com/ogen-go/ogen/cmd/ogen --target . --package oas ../../api/openapi.yaml
