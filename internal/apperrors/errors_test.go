package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("loading: %w", Wrap(CodeNotFound, "plan missing", base))

	require.True(t, IsCode(err, CodeNotFound))
	require.False(t, IsCode(err, CodeInvalidInput))
	require.ErrorIs(t, err, base)
	require.Equal(t, "loading: plan missing: boom", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	require.Equal(t, CodeInternal, CodeOf(errors.New("x")))
	require.Equal(t, "bad", Wrap(CodeInvalidInput, "bad", nil).Error())
}
