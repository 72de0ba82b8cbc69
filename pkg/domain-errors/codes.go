package domainerrors

import "net/http"

// Code classifies a domain error. The string value doubles as the wire-level
// error code in HTTP envelopes, so values are stable once released.
type Code string

const (
	// CodeValidation marks payloads that parsed but violate domain rules
	// (empty title, malformed email, unknown enum variant).
	CodeValidation Code = "validation_failed"

	// CodeInvalidInput marks malformed primitives rejected at a trust
	// boundary, before any domain rule runs (bad id, bad hex, bad UTF-8).
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks transport-level problems: unreadable body,
	// unknown collection segment, missing required parameter.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized marks requests with no usable caller identity.
	CodeUnauthorized Code = "unauthorized"

	// CodeDenied marks authorization failures. Callers receive the same
	// code whether the agent is unknown or merely unprivileged.
	CodeDenied Code = "denied"

	// CodeNotFound marks entities that do not exist, were never created,
	// or are tombstoned. Deleted and never-existed are indistinguishable.
	CodeNotFound Code = "not_found"

	// CodeConflict marks writes that lost to an existing fact: a duplicate
	// record id, a second user profile, revoking the last administrator.
	CodeConflict Code = "conflict"

	// CodeInvalidTransition marks status changes the lifecycle state
	// machine does not permit from the current state.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeUnavailable marks transient infrastructure failure after retry
	// exhaustion. Safe to retry later.
	CodeUnavailable Code = "unavailable"

	// CodeTimeout marks an operation cancelled by deadline.
	CodeTimeout Code = "timeout"

	// CodeInternal marks unexpected failures. Details are logged, never
	// returned to callers.
	CodeInternal Code = "internal_error"

	// CodeInvariantViolation marks corrupted state that should be
	// impossible: a dangling predecessor, a record failing signature
	// verification, a status chain with no creation record.
	CodeInvariantViolation Code = "invariant_violation"
)

// HTTPStatus maps a code to the response status used by httputil.WriteError.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidTransition:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether an operation failing with this code may succeed
// if repeated. Only transient infrastructure codes qualify; domain outcomes
// (validation, denial, missing entities) are final.
func (c Code) Retryable() bool {
	return c == CodeUnavailable || c == CodeTimeout
}

// Opaque reports whether the error's message must be withheld from external
// callers. Internal details leak schema and topology; clients get the code.
func (c Code) Opaque() bool {
	return c == CodeInternal || c == CodeInvariantViolation
}
