// Code generated by ogen, DO NOT EDIT.

package oas

import (
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/conv"
	"github.com/ogen-go/ogen/middleware"
	"github.com/ogen-go/ogen/ogenerrors"
	"github.com/ogen-go/ogen/uri"
	"github.com/ogen-go/ogen/validate"
)

// RevokeKeyParams is parameters of revokeKey operation.
type RevokeKeyParams struct {
	Secret string
}

func unpackRevokeKeyParams(packed middleware.Parameters) (params RevokeKeyParams) {
	{
		key := middleware.ParameterKey{
			Name: "secret",
			In:   "path",
		}
		params.Secret = packed[key].(string)
	}
	return params
}

func decodeRevokeKeyParams(args [1]string, argsEscaped bool, r *http.Request) (params RevokeKeyParams, _ error) {
	// Decode path: secret.
	if err := func() error {
		param := args[0]
		if argsEscaped {
			unescaped, err := url.PathUnescape(args[0])
			if err != nil {
				return errors.Wrap(err, "unescape path")
			}
			param = unescaped
		}
		if len(param) > 0 {
			d := uri.NewPathDecoder(uri.PathDecoderConfig{
				Param:   "secret",
				Value:   param,
				Style:   uri.PathStyleSimple,
				Explode: false,
			})

			if err := func() error {
				val, err := d.DecodeValue()
				if err != nil {
					return err
				}

				c, err := conv.ToString(val)
				if err != nil {
					return err
				}

				params.Secret = c
				return nil
			}(); err != nil {
				return err
			}
		} else {
			return validate.ErrFieldRequired
		}
		return nil
	}(); err != nil {
		return params, &ogenerrors.DecodeParamError{
			Name: "secret",
			In:   "path",
			Err:  err,
		}
	}
	return params, nil
}
