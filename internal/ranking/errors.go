package ranking

import "fmt"

// PreconditionError reports a request that cannot be ranked, such as a seeker
// without any profile data. It is returned to the caller.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Message)
}

// InternalError wraps collaborator failures. It is returned to the caller.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// ProviderError reports a failed completion call. Rank absorbs it.
type ProviderError struct {
	Provider string
	Timeout  bool
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("provider %s timed out: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ParseError reports a provider reply that could not be turned into scores.
// Rank absorbs it.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
