package fetcher

import (
	"context"
	"fmt"

	"github.com/aleister1102/pagewatch/internal/models"
)

// Fetcher is the boundary capability that retrieves a rendered page and
// turns it into a PageSnapshot. Implementations must honor ctx cancellation
// promptly; a fetch in flight when ctx is cancelled should abort.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.PageSnapshot, error)
}

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

const (
	FetchErrorUnreachable   FetchErrorKind = "unreachable"
	FetchErrorTimeout       FetchErrorKind = "timeout"
	FetchErrorRenderFailure FetchErrorKind = "render_failure"
)

// FetchError is a classified failure of the fetch capability.
type FetchError struct {
	Kind    FetchErrorKind
	URL     string
	Wrapped error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s) for URL '%s': %v", e.Kind, e.URL, e.Wrapped)
}

func (e *FetchError) Unwrap() error {
	return e.Wrapped
}

// NewFetchError creates a classified fetch error.
func NewFetchError(kind FetchErrorKind, url string, wrapped error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Wrapped: wrapped}
}
