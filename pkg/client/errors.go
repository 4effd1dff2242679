package client

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned while the API cool-down is active.
	ErrRateLimited = errors.New("request blocked: rate limit cool-down")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and local cool-down blocks.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassGraphQL represents errors reported in a GraphQL response body.
	ErrorClassGraphQL ErrorClass = "graphql"

	// ErrorClassDecode represents a response body that could not be decoded.
	ErrorClassDecode ErrorClass = "decode"
)

// GraphQLError is one entry of a GraphQL response's "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// APIError represents a failed API call with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error

	// GraphQLErrors is set for ErrorClassGraphQL.
	GraphQLErrors []GraphQLError
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// newGraphQLError builds an APIError from the errors array of a response.
func newGraphQLError(status int, gqlErrs []GraphQLError) *APIError {
	msgs := make([]string, 0, len(gqlErrs))
	for _, e := range gqlErrs {
		msgs = append(msgs, e.Message)
	}
	return &APIError{
		StatusCode:    status,
		ErrorClass:    ErrorClassGraphQL,
		Message:       strings.Join(msgs, "; "),
		GraphQLErrors: gqlErrs,
	}
}

// classOf returns the class of err, or "" when it carries none.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

// isNotFound reports whether err is the API's answer for a filter that
// matches nothing: a GraphQL error on the characters field in an otherwise
// successful response. HTTP 404s are real failures (wrong endpoint, proxy).
func isNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorClass != ErrorClassGraphQL {
		return false
	}
	for _, e := range apiErr.GraphQLErrors {
		if len(e.Path) == 0 || e.Path[0] != "characters" {
			continue
		}
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, "404") || strings.Contains(msg, "nothing here") {
			return true
		}
	}
	return false
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// Client, GraphQL and decode errors repeat identically on retry.
		return false
	}
}
