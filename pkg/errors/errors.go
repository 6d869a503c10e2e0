// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. The segment after
// the final dot is the "reason" and drives classification and HTTP mapping.
type Code string

const (
	CodeEntryNotFound    Code = "knowledge.entry.not_found"
	CodeRevisionNotFound Code = "revision.get.not_found"
	CodeNodeNotFound     Code = "taxonomy.node.not_found"
	CodeRequestNotFound  Code = "review.request.not_found"

	CodeRevisionConflict          Code = "revision.append.conflict"
	CodeRevisionInvalidTransition Code = "revision.status.invalid_transition"

	CodeLockHeld      Code = "lock.acquire.held"
	CodeLockNotHolder Code = "lock.release.not_holder"

	CodeReviewInProgress        Code = "review.submit.in_progress"
	CodeReviewInvalidTransition Code = "review.decide.invalid_transition"

	CodeTaxonomyCycle Code = "taxonomy.insert.cycle"
	CodeNodeInUse     Code = "taxonomy.delete.in_use"

	CodeGraphSelfLoop Code = "graph.link.self_loop"

	CodeInvalidArgument Code = "knowledge.request.invalid_input"
	CodeContentInvalid  Code = "knowledge.content.invalid_input"

	CodeIndexUnavailable Code = "search.reindex.unavailable"

	CodeStoreFailure            Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretResolveFailure Code = "secrets.resolve.failure"
	CodeSecretNotFound       Code = "secrets.key.not_found"
	CodeSecretInvalidInput   Code = "secrets.request.invalid_input"
	CodeSecretStoreFailure   Code = "secrets.store.failure"

	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerInternalFailure Code = "server.internal.failure"

	CodeCLIRequestFailure  Code = "cli.request.failure"
	CodeCLIResponseInvalid Code = "cli.response.invalid"
	CodeCLIInputInvalid    Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldEntryID(value string) Attr {
	return Field("entry_id", value)
}

func FieldNodeID(value string) Attr {
	return Field("node_id", value)
}

func FieldRevision(value int) Attr {
	return Field("revision_number", value)
}

func FieldHolder(value string) Attr {
	return Field("holder", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

// IsConflict reports whether the error is a write/write collision: a stale
// parent revision, a held lock, or a duplicate pending submission.
func IsConflict(err error) bool {
	r := reason(CodeOf(err))
	return r == "conflict" || r == "held" || r == "in_progress"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_transition"
}

func IsNotHolder(err error) bool {
	return reason(CodeOf(err)) == "not_holder"
}

func IsIntegrityViolation(err error) bool {
	r := reason(CodeOf(err))
	return r == "cycle" || r == "in_use" || r == "self_loop"
}

func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

// HTTPStatus maps an error to the status a transport binding should return.
// Every recoverable failure in the taxonomy maps below 500; only genuine
// store/server faults surface as 500.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case HasCode(err, CodeRevisionInvalidTransition), HasCode(err, CodeReviewInvalidTransition):
		return http.StatusConflict
	case IsConflict(err):
		return http.StatusConflict
	case IsNotHolder(err):
		return http.StatusForbidden
	case IsIntegrityViolation(err):
		return http.StatusUnprocessableEntity
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
