package apperr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrNotFound, cause, "load car")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not found: load car: boom", err.Error())
	assert.Nil(t, Wrap(ErrInternal, nil, "x"))
}

func TestNew(t *testing.T) {
	err := New(ErrFailedPrecondition, "product %s inactive", "p1")
	assert.ErrorIs(t, err, ErrFailedPrecondition)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "failed precondition: product p1 inactive", err.Error())
}

func TestClassify(t *testing.T) {
	assert.True(t, IsTransient(Classify(context.DeadlineExceeded, "get")))
	assert.ErrorIs(t, Classify(errors.New("syntax"), "get"), ErrInternal)

	already := New(ErrPermissionDenied, "owner mismatch")
	assert.Same(t, already, Classify(already, "get"))
	assert.Nil(t, Classify(nil, "get"))
}
