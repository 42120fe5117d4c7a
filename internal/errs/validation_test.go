package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationError_OrNil(t *testing.T) {
	var ve ValidationError
	require.NoError(t, ve.OrNil())

	ve.Add("title", "can't be blank")
	ve.Add("source", "can't be blank")
	err := ve.OrNil()
	require.Error(t, err)
	require.Equal(t, "validation: title: can't be blank; source: can't be blank", err.Error())
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("create: %w", Invalid("identifier", "can't be blank"))
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrNotFound)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, []FieldError{{Field: "identifier", Detail: "can't be blank"}}, ve.Fields)
}
