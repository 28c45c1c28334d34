package dispatch

import "fmt"

// ResolutionError reports an API path that does not name an operation.
// MissingSegment is the first segment that failed to resolve; it is the most
// common user-visible failure, so the message always names it.
type ResolutionError struct {
	APIPath        string
	MissingSegment string
}

func (e *ResolutionError) Error() string {
	if e.APIPath == "" {
		return "cannot resolve empty api_path"
	}
	return fmt.Sprintf("cannot resolve %q: unknown segment %q", e.APIPath, e.MissingSegment)
}

// InvocationError reports a resolved operation that rejected its arguments or
// failed during execution. The underlying message is preserved for the client.
type InvocationError struct {
	APIPath string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.APIPath, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
