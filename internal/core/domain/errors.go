package domain

import (
	"fmt"
	"time"
)

// MaxErrorChainDepth bounds how many causes a FrameworkError remembers.
// Deeper chains are truncated to avoid unbounded memory from cyclic
// cause fields in caller code (see spec §9).
const MaxErrorChainDepth = 10

// FrameworkError is the single error type every public operation
// returns. It always carries exactly one closed ErrorKind plus enough
// context to build the standardized error response object (§6).
type FrameworkError struct {
	Cause     error
	Kind      ErrorKind
	Message   string
	Details   string
	ServiceID string
	Timestamp time.Time
	Chain     []string
}

func (e *FrameworkError) Error() string {
	if e.ServiceID != "" {
		return fmt.Sprintf("[%d %s] %s (service: %s)", e.Kind.Code(), e.Kind, e.Message, e.ServiceID)
	}
	return fmt.Sprintf("[%d %s] %s", e.Kind.Code(), e.Kind, e.Message)
}

func (e *FrameworkError) Unwrap() error {
	return e.Cause
}

// NewFrameworkError constructs a fresh, un-wrapped error of the given kind.
func NewFrameworkError(kind ErrorKind, message string) *FrameworkError {
	return &FrameworkError{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Chain:     []string{chainEntry(kind, message, "")},
	}
}

// NewFrameworkErrorWithService is NewFrameworkError plus a serviceId tag.
func NewFrameworkErrorWithService(kind ErrorKind, message, serviceID string) *FrameworkError {
	e := NewFrameworkError(kind, message)
	e.ServiceID = serviceID
	e.Chain[0] = chainEntry(kind, message, serviceID)
	return e
}

// WrapFrameworkError wraps cause as a new FrameworkError of the given
// kind, preserving the cause's chain (truncated to MaxErrorChainDepth,
// outermost-first) when cause is itself a *FrameworkError.
func WrapFrameworkError(kind ErrorKind, message string, cause error) *FrameworkError {
	e := &FrameworkError{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}

	entry := chainEntry(kind, message, "")
	if prev, ok := cause.(*FrameworkError); ok {
		e.Chain = append([]string{entry}, prev.Chain...)
	} else if cause != nil {
		e.Chain = []string{entry, cause.Error()}
	} else {
		e.Chain = []string{entry}
	}

	if len(e.Chain) > MaxErrorChainDepth {
		e.Chain = e.Chain[:MaxErrorChainDepth]
	}
	return e
}

// WrapAsInternal wraps an unclassified error as InternalError, per §7's
// "non-framework exceptions are wrapped as InternalError and not retried".
func WrapAsInternal(message string, cause error) *FrameworkError {
	return WrapFrameworkError(InternalError, message, cause)
}

func chainEntry(kind ErrorKind, message, serviceID string) string {
	if serviceID != "" {
		return fmt.Sprintf("[%d %s] %s (service: %s)", kind.Code(), kind, message, serviceID)
	}
	return fmt.Sprintf("[%d %s] %s", kind.Code(), kind, message)
}

// AsFrameworkError classifies any error into a *FrameworkError,
// preserving it unchanged if it already is one and wrapping it as
// InternalError otherwise (per §7 propagation policy).
func AsFrameworkError(err error) *FrameworkError {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FrameworkError); ok {
		return fe
	}
	return WrapAsInternal(err.Error(), err)
}

// ErrorResponse is the standardized wire representation emitted at any
// protocol boundary (§6).
type ErrorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	Details    string   `json:"details,omitempty"`
	ServiceID  string   `json:"serviceId,omitempty"`
	Code       int      `json:"code"`
	Timestamp  int64    `json:"timestamp"`
	ErrorChain []string `json:"errorChain"`
}

// ToErrorResponse renders the standardized wire representation.
func (e *FrameworkError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Code:       e.Kind.Code(),
		Error:      e.Kind.String(),
		Message:    e.Message,
		Details:    e.Details,
		ServiceID:  e.ServiceID,
		Timestamp:  e.Timestamp.UnixMilli(),
		ErrorChain: e.Chain,
	}
}
