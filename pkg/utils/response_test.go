package utils

import (
	"errors"
	"testing"

	pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"
	"github.com/stretchr/testify/assert"
)

func TestPanicIfNeeded_NilIsNoOp(t *testing.T) {
	assert.NotPanics(t, func() { PanicIfNeeded(nil) })
}

func TestPanicIfNeeded_GenericErrorPanicsAsIs(t *testing.T) {
	original := pkgError.ValidationError("bad field")

	defer func() {
		r := recover()
		require := assert.New(t)
		require.NotNil(r)
		require.Equal(original, r)
	}()
	PanicIfNeeded(original)
}

func TestPanicIfNeeded_PlainErrorIsWrapped(t *testing.T) {
	defer func() {
		r := recover()
		assert.NotNil(t, r)
		generic, ok := r.(pkgError.GenericError)
		assert.True(t, ok)
		assert.Equal(t, 500, generic.StatusCode())
	}()
	PanicIfNeeded(errors.New("boom"))
}
