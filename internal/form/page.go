package form

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Page when a selector matches nothing.
var ErrNotFound = errors.New("element not found")

// Page is the browser surface a Driver needs. Every method blocks until the
// action completes or ctx is done.
type Page interface {
	// Navigate loads url and waits until the network is almost idle.
	Navigate(ctx context.Context, url string) error
	// Select picks the option whose value or text equals option.
	Select(ctx context.Context, selector, option string) error
	// Type focuses the element and types text into it.
	Type(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	WaitVisible(ctx context.Context, selector string) error
	// Value reads the value property, or returns ErrNotFound.
	Value(ctx context.Context, selector string) (string, error)
	ScrollIntoView(ctx context.Context, selector string) error
	// WaitRendered waits until the element has a non-zero box and is not
	// visibility:hidden.
	WaitRendered(ctx context.Context, selector string) error
	// ScriptClick calls el.click() inside the page.
	ScriptClick(ctx context.Context, selector string) error
	Location(ctx context.Context) (string, error)

	// ExpectResponse starts listening for a matching response. Arm it before
	// the action that triggers the request.
	ExpectResponse(ctx context.Context, match ResponseMatch) Waiter
	// ExpectNavigation starts listening for the next main-frame navigation.
	ExpectNavigation(ctx context.Context) Waiter
}

// Waiter waits for an event armed earlier. Stop releases the listener and is
// safe to call more than once.
type Waiter interface {
	Wait(ctx context.Context) error
	Stop()
}

// ResponseMatch selects a network response by URL fragment and status.
// A zero Status matches any status.
type ResponseMatch struct {
	URLContains string
	Status      int
}
