package accumulator

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
)

var (
	// ErrFetchFailed matches every error returned for a page that could not be loaded.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrLoadInProgress is returned by LoadMore while another load is pending.
	ErrLoadInProgress = errors.New("load already in progress")

	// errStaleResponse marks a response from a superseded filter generation.
	// It is logged, never returned.
	errStaleResponse = errors.New("stale response")
)

// FetchError describes a page that failed to load.
type FetchError struct {
	Page   int
	Filter character.Filter
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.Filter, e.Err)
}

// Unwrap returns the fetcher's error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports ErrFetchFailed as a match.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}
