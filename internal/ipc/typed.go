package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Handler is the untyped form every channel is dispatched through.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// NoArgs is the request type of channels that take no arguments.
type NoArgs struct{}

// Endpoint is a handler plus the request and response types it was built
// from, which feed the published contract.
type Endpoint struct {
	Handler  Handler
	Request  reflect.Type
	Response reflect.Type
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Typed adapts fn into an Endpoint. Arguments are decoded strictly
// (unknown fields are rejected) and struct requests are validated with
// their `validate` tags before fn runs. Empty or null arguments decode to
// the zero Req.
func Typed[Req, Resp any](fn func(ctx context.Context, req Req) (Resp, error)) Endpoint {
	return Endpoint{
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var req Req
			if err := decodeArgs(args, &req); err != nil {
				return nil, err
			}
			if err := validateArgs(req); err != nil {
				return nil, err
			}
			return fn(ctx, req)
		},
		Request:  reflect.TypeOf((*Req)(nil)).Elem(),
		Response: reflect.TypeOf((*Resp)(nil)).Elem(),
	}
}

func decodeArgs(args json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &Error{Code: CodeInvalidArgument, Message: "malformed arguments: " + err.Error(), Err: err}
	}
	if dec.More() {
		return Errorf(CodeInvalidArgument, "malformed arguments: trailing data")
	}
	return nil
}

func validateArgs(req any) error {
	t := reflect.TypeOf(req)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		if reflect.ValueOf(req).IsNil() {
			return nil
		}
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(req)
}
