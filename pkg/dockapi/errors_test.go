package dockapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	apiErr := &APIError{StatusCode: http.StatusConflict, Message: "container is running"}
	notFound := &NotFoundError{Kind: "container", Ref: "ghost"}
	buildErr := &BuildError{Message: "step 3 failed"}

	assert.True(t, IsAPIError(apiErr))
	assert.False(t, IsAPIError(notFound))

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(apiErr))

	assert.True(t, IsBuildError(buildErr))
	assert.False(t, IsBuildError(apiErr))
}

func TestErrorPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("failed to remove container web: %w", &NotFoundError{Kind: "container", Ref: "web"})
	assert.True(t, IsNotFound(wrapped))

	doubly := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", &APIError{StatusCode: 500, Message: "boom"}))
	assert.True(t, IsAPIError(doubly))
}

func TestNotFoundOr(t *testing.T) {
	missing := notFoundOr(&APIError{StatusCode: http.StatusNotFound, Message: "No such image"}, "image", "ghost:latest")
	var nf *NotFoundError
	assert.ErrorAs(t, missing, &nf)
	assert.Equal(t, "image", nf.Kind)
	assert.Equal(t, "ghost:latest", nf.Ref)

	conflict := notFoundOr(&APIError{StatusCode: http.StatusConflict, Message: "in use"}, "image", "busy")
	assert.False(t, IsNotFound(conflict))
	assert.True(t, IsAPIError(conflict))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "engine API error (status 409): container is running",
		(&APIError{StatusCode: 409, Message: "container is running"}).Error())
	assert.Equal(t, "network not found: appnet",
		(&NotFoundError{Kind: "network", Ref: "appnet"}).Error())
	assert.Equal(t, "build failed: step 3 failed",
		(&BuildError{Message: "step 3 failed"}).Error())
}
