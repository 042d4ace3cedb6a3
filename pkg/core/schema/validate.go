// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the request bodies accepted at the HTTP boundary and
// decodes them strictly.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

// validate is shared by every request type.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report json field names instead of Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// normalizer is implemented by wire types that carry legacy aliases.
type normalizer[T any] interface {
	normalize() T
}

// DecodeStrict reads exactly one JSON value from r into dst, rejecting
// unknown fields, and validates the result.
func DecodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.Validation("request body is required")
		}
		return apierr.Validation("invalid JSON body: %v", err)
	}
	if dec.More() {
		return apierr.Validation("request body must contain a single JSON value")
	}
	return Validate(dst)
}

// decodeAliased decodes the wire form W, folds its aliases into the canonical
// form T and validates T.
func decodeAliased[T any, W normalizer[T]](r io.Reader) (T, error) {
	var wire W
	var zero T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, apierr.Validation("request body is required")
		}
		return zero, apierr.Validation("invalid JSON body: %v", err)
	}
	if dec.More() {
		return zero, apierr.Validation("request body must contain a single JSON value")
	}
	out := wire.normalize()
	if err := Validate(&out); err != nil {
		return zero, err
	}
	return out, nil
}

// Validate runs the struct validation tags of v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Validation("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apierr.Validation("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// firstNonEmpty returns the first value that is not blank after trimming.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// firstVerbatim returns the first value that is not blank, unmodified.
func firstVerbatim(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// firstSet returns the first non-nil pointer.
func firstSet(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
