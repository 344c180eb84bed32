package form

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFieldMismatch reports an autofilled or hidden field with the wrong value.
	ErrFieldMismatch = errors.New("unexpected field value")
	// ErrRedirect reports a post-submit URL without the expected fragment.
	ErrRedirect = errors.New("unexpected redirect")
)

// Kind classifies a driver failure.
type Kind string

const (
	KindAssertion Kind = "assertion"
	KindTimeout   Kind = "timeout"
	KindNotFound  Kind = "not_found"
	KindRedirect  Kind = "redirect"
	KindBrowser   Kind = "browser"
)

// Error is the failure of one form run. It names the form and URL and keeps
// the state the run had reached.
type Error struct {
	Form  string
	URL   string
	State State
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s form failed %s: %v", e.Form, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRedirect):
		return KindRedirect
	case errors.Is(err, ErrFieldMismatch):
		return KindAssertion
	default:
		return KindBrowser
	}
}
