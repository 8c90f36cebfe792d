package inflight

import (
	"errors"
	"testing"

	"github.com/maheshrc27/agency-planner/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_RejectsReentrantFlag(t *testing.T) {
	l := NewLocks()

	release, err := l.Acquire("post-1", Moving)
	require.NoError(t, err)

	_, err = l.Acquire("post-1", Scheduling)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	flag, ok := l.Flag("post-1")
	assert.True(t, ok)
	assert.Equal(t, Moving, flag)

	release()
	assert.False(t, l.Busy("post-1"))
}

func TestAcquire_ReleasedOnErrorPath(t *testing.T) {
	l := NewLocks()

	op := func() error {
		release, err := l.Acquire("post-2", Deleting)
		if err != nil {
			return err
		}
		defer release()
		return errors.New("store rejected delete")
	}

	assert.Error(t, op())
	assert.False(t, l.Busy("post-2"))

	// A second attempt acquires again rather than failing with a conflict.
	err := op()
	assert.False(t, apperr.Is(err, apperr.KindConflict))
}

func TestRelease_IsIdempotent(t *testing.T) {
	l := NewLocks()

	first, err := l.Acquire("post-3", Editing)
	require.NoError(t, err)
	first()

	second, err := l.Acquire("post-3", Moving)
	require.NoError(t, err)
	first()

	assert.True(t, l.Busy("post-3"))
	second()
	assert.Empty(t, l.Snapshot())
}
