// Package enrich runs contact discovery backends for a prospect, merges and
// validates what they find, and writes the outcome back to the prospect.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/resilience"
)

// SearchRequest is what a backend knows about the prospect being enriched.
type SearchRequest struct {
	ProspectName    string
	ProspectCompany string
	City            string
	// Website is the prospect's known site, if any. Backends may use it to
	// narrow searches.
	Website string
	Options model.EnrichOptions
}

// SearchBackend finds contact candidates through a search service.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, req SearchRequest) (*model.EnrichmentResult, error)
}

// ScrapingBackend finds contact candidates on given pages.
type ScrapingBackend interface {
	Name() string
	ScrapeURLs(ctx context.Context, urls []string, req SearchRequest) (*model.EnrichmentResult, error)
}

// BackendError is a failed backend call. The orchestrator records it and
// carries on with the other backends.
type BackendError struct {
	Backend string
	Err     error
	Timeout bool
	Panic   bool
}

// NewBackendError wraps err for backend. Deadline errors are flagged as
// timeouts.
func NewBackendError(backend string, err error) *BackendError {
	return &BackendError{
		Backend: backend,
		Err:     err,
		Timeout: errors.Is(err, context.DeadlineExceeded),
	}
}

func (e *BackendError) Error() string {
	switch {
	case e.Panic:
		return fmt.Sprintf("backend %s: panic: %v", e.Backend, e.Err)
	case e.Timeout:
		return fmt.Sprintf("backend %s: timed out: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Transient reports whether retrying the call later could succeed.
func (e *BackendError) Transient() bool {
	return e.Timeout || resilience.IsTransient(e.Err)
}

// AsBackendError extracts a *BackendError from err.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	ok := errors.As(err, &be)
	return be, ok
}
