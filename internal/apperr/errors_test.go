package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("post 42: %w", External("media upload", cause))

	assert.Equal(t, KindExternal, KindOf(err))
	assert.Equal(t, "media upload", Op(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "media upload: connection reset")
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindValidation))
}

func TestValidationMessage(t *testing.T) {
	err := Validation("caption is required for %d posts", 2)

	assert.True(t, Is(err, KindValidation))
	assert.Equal(t, "caption is required for 2 posts", err.Error())
}

func TestCollaboratorClassification(t *testing.T) {
	assert.NoError(t, Collaborator("persistence", nil))

	err := Collaborator("persistence", errors.New("pq: connection refused"))
	assert.True(t, Is(err, KindExternal))
	assert.Equal(t, "persistence", Op(err))

	err = Collaborator("persistence", fmt.Errorf("list posts: %w", context.DeadlineExceeded))
	assert.True(t, Is(err, KindTimeout))

	notFound := NotFound("post", "p1")
	assert.Same(t, notFound, Collaborator("persistence", notFound))
}
