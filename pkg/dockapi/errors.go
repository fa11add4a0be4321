package dockapi

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is any non-2xx response from the engine that is not a
// resource-absence case. It carries the HTTP status and the message from
// the engine's error envelope (or the raw body when the envelope is not
// JSON).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("engine API error (status %d): %s", e.StatusCode, e.Message)
}

// NotFoundError reports that a targeted container, image or network does
// not exist server-side. It is a distinct kind so callers can implement
// delete-if-exists and create-if-absent without parsing messages.
type NotFoundError struct {
	Kind string // "container", "image" or "network"
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

// BuildError reports an image build that failed, either via an explicit
// error event in the build stream or by ending without a success signal.
type BuildError struct {
	Message string
}

func (e *BuildError) Error() string {
	return "build failed: " + e.Message
}

// IsNotFound reports whether err is a resource-absence error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAPIError reports whether err carries an engine HTTP status.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// IsBuildError reports whether err is an image build failure.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// notFoundOr converts a 404 APIError into a NotFoundError for the given
// resource; any other error passes through unchanged.
func notFoundOr(err error, kind, ref string) error {
	var ae *APIError
	if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
		return &NotFoundError{Kind: kind, Ref: ref}
	}
	return err
}
