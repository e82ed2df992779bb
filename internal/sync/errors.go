package sync

import "fmt"

// ErrorKind names the run phase an operation failed in.
type ErrorKind string

const (
	KindConfig ErrorKind = "CONFIG"
	KindFetch  ErrorKind = "FETCH"
	KindDiff   ErrorKind = "DIFF"
	KindApply  ErrorKind = "APPLY"
	KindState  ErrorKind = "STATE"
)

// OpError surfaces a failure as a structured result: the phase it happened
// in, the path involved (when there is one) and the cause.
type OpError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(kind ErrorKind, path string, err error) *OpError {
	return &OpError{Kind: kind, Path: path, Err: err}
}
