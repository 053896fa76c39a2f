package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failure so the HTTP boundary can map it to a status code.
type Kind string

const (
	KindUnknown              Kind = "Unknown"
	KindInvalidInput         Kind = "InvalidInput"
	KindMissingToken         Kind = "MissingToken"
	KindInvalidToken         Kind = "InvalidToken"
	KindUnknownUser          Kind = "UnknownUser"
	KindUnknownAssignment    Kind = "UnknownAssignment"
	KindUnknownSubAssignment Kind = "UnknownSubAssignment"
	KindMalformedBody        Kind = "MalformedBody"
	KindNotReadyForDispatch  Kind = "NotReadyForDispatch"
	KindDispatchFailed       Kind = "DispatchFailed"
	KindStoreUnavailable     Kind = "StoreUnavailable"
	KindUnauthorized         Kind = "Unauthorized"
)

var statusByKind = map[Kind]int{
	KindInvalidInput:         http.StatusBadRequest,
	KindMissingToken:         http.StatusBadRequest,
	KindInvalidToken:         http.StatusNotFound,
	KindUnknownUser:          http.StatusNotFound,
	KindUnknownAssignment:    http.StatusNotFound,
	KindUnknownSubAssignment: http.StatusNotFound,
	KindMalformedBody:        http.StatusBadRequest,
	KindNotReadyForDispatch:  http.StatusConflict,
	KindDispatchFailed:       http.StatusBadGateway,
	KindStoreUnavailable:     http.StatusInternalServerError,
	KindUnauthorized:         http.StatusUnauthorized,
}

// Error is a classified failure. Code overrides the status derived from Kind
// when non-zero.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	if e.Code != 0 {
		return e.Code
	}
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The cause stays reachable through errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithCode sets an explicit status code.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return batchErr.Kind()
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err, or any failure of a batch error, carries the given kind.
func Is(err error, kind Kind) bool {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		for _, failure := range batchErr.Failures {
			if Is(failure, kind) {
				return true
			}
		}
		return false
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// HTTPStatus maps any error to a status code; unclassified errors are 500.
func HTTPStatus(err error) int {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return batchErr.Status()
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

// BatchError collects the per-user failures of a batch operation. Users
// absent from Failures completed successfully.
type BatchError struct {
	Operation string
	Failures  map[string]error
}

// NewBatchError returns nil when failures is empty.
func NewBatchError(operation string, failures map[string]error) error {
	if len(failures) == 0 {
		return nil
	}
	return &BatchError{Operation: operation, Failures: failures}
}

// Users returns the failed user ids in sorted order.
func (b *BatchError) Users() []string {
	users := make([]string, 0, len(b.Failures))
	for user := range b.Failures {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

func (b *BatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s failed for %d user(s)", b.Operation, len(b.Failures))
	for _, user := range b.Users() {
		fmt.Fprintf(&sb, "; %s: %v", user, b.Failures[user])
	}
	return sb.String()
}

// Kind is the kind of the failure with the highest status, ties broken by user id.
func (b *BatchError) Kind() Kind {
	kind, status := KindUnknown, 0
	for _, user := range b.Users() {
		if s := HTTPStatus(b.Failures[user]); s > status {
			kind, status = KindOf(b.Failures[user]), s
		}
	}
	return kind
}

// Status is the most severe status among the failures.
func (b *BatchError) Status() int {
	status := 0
	for _, err := range b.Failures {
		if s := HTTPStatus(err); s > status {
			status = s
		}
	}
	if status == 0 {
		return http.StatusInternalServerError
	}
	return status
}

// Unwrap exposes the individual failures to errors.Is/As.
func (b *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(b.Failures))
	for _, user := range b.Users() {
		errs = append(errs, b.Failures[user])
	}
	return errs
}
