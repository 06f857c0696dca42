package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks caller errors detected before any side effect.
var ErrInvalidInput = errors.New("invalid input")

// ErrCustomerNotFound is returned by read operations for unknown ids.
var ErrCustomerNotFound = errors.New("customer not found")

// Code names a downstream failure outcome.  Each failing step maps to
// exactly one code, so callers can tell what to re-submit.
type Code string

const (
	CodeProductLookupFailed       Code = "ProductLookupFailed"
	CodeIdentityCreationFailed    Code = "IdentityCreationFailed"
	CodeCustomerCreationFailed    Code = "CustomerCreationFailed"
	CodeEntitlementCreationFailed Code = "EntitlementCreationFailed"
	CodeCustomerUpdateFailed      Code = "CustomerUpdateFailed"
	CodeEntitlementLookupFailed   Code = "EntitlementLookupFailed"
	CodeEntitlementAddFailed      Code = "EntitlementAddFailed"
	CodeEntitlementRemoveFailed   Code = "EntitlementRemoveFailed"
	CodeNotesUpdateFailed         Code = "NotesUpdateFailed"
	CodeEntitlementCleanupFailed  Code = "EntitlementCleanupFailed"
	CodeProfileDetachFailed       Code = "ProfileDetachFailed"
	CodeOrderDetachFailed         Code = "OrderDetachFailed"
	CodeCustomerDeleteFailed      Code = "CustomerDeleteFailed"
	CodeIdentityDeleteFailed      Code = "IdentityDeleteFailed"
)

// StepError is a DownstreamFailure: one named step failed.  Committed lists
// the mutating steps of the same invocation that had already succeeded.
// Residual describes data left behind that the orchestrator will not clean
// up by itself (an identity without a customer).
type StepError struct {
	Code       Code
	Step       Step
	Entity     string
	CustomerID string
	Committed  []Step
	Residual   string
	Err        error
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: step %s (%s) failed: %v", e.Code, e.Step, e.Entity, e.Err)
	if len(e.Committed) > 0 {
		parts := make([]string, len(e.Committed))
		for i, s := range e.Committed {
			parts[i] = string(s)
		}
		fmt.Fprintf(&b, "; already committed: %s", strings.Join(parts, ", "))
	}
	if e.Residual != "" {
		fmt.Fprintf(&b, "; residual: %s", e.Residual)
	}
	return b.String()
}

func (e *StepError) Unwrap() error { return e.Err }

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
