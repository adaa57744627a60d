/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package reason defines the stable failure codes surfaced on SecretRequest status
// and how each of them is retried.
package reason

import (
	"context"
	"errors"
	"fmt"
)

// Code is a stable, machine readable failure reason.
type Code string

const (
	IdentityNotMapped   Code = "IdentityNotMapped"
	ExchangeDenied      Code = "ExchangeDenied"
	ExchangeUnavailable Code = "ExchangeUnavailable"

	NotFound     Code = "NotFound"
	AccessDenied Code = "AccessDenied"
	Throttled    Code = "Throttled"
	Unavailable  Code = "Unavailable"

	MappingNotFound   Code = "MappingNotFound"
	OwnershipConflict Code = "OwnershipConflict"
	InvalidSpec       Code = "InvalidSpec"
	StoreNotFound     Code = "StoreNotFound"

	ApplyFailed Code = "ApplyFailed"
	Unknown     Code = "Unknown"
)

// Class groups codes by how they are retried.
type Class string

const (
	// Configuration errors need a spec change and are never retried automatically.
	Configuration Class = "Configuration"
	// Authorization errors are retried on the regular refresh cadence only.
	Authorization Class = "Authorization"
	// Transient errors are retried with backoff.
	Transient Class = "Transient"
)

// Class returns the retry class of c.
func (c Code) Class() Class {
	switch c {
	case MappingNotFound, OwnershipConflict, InvalidSpec, StoreNotFound:
		return Configuration
	case IdentityNotMapped, ExchangeDenied, AccessDenied, NotFound:
		return Authorization
	default:
		return Transient
	}
}

// Error is an error tagged with a Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes every Error with the same Code match, so package level sentinels
// created with Sentinel can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel returns a bare Error usable as an errors.Is target.
func Sentinel(code Code) error {
	return &Error{Code: code}
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with code. A nil err stays nil.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Wrapf tags err with code and a message.
func Wrapf(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Of returns the code carried by err. Deadline errors count as Unavailable.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable
	}
	return Unknown
}

// ClassOf returns the retry class of err.
func ClassOf(err error) Class {
	return Of(err).Class()
}

// Retryable reports whether err should be retried on a backoff.
func Retryable(err error) bool {
	return err != nil && ClassOf(err) == Transient
}
