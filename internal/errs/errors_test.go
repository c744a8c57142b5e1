package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(ErrKindNotFound, "no such object")
	assert.Equal(t, "[not_found] no such object", plain.Error())

	cause := errors.New("open /tmp/fruit.json: permission denied")
	wrapped := Wrap(ErrKindIOFailure, "write bucket file", cause)
	assert.Equal(t, "[io_failure] write bucket file: open /tmp/fruit.json: permission denied", wrapped.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	wrapped := Wrap(ErrKindMalformedData, "decode bucket", cause)

	assert.ErrorIs(t, wrapped, cause)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"not found matches", New(ErrKindNotFound, "x"), IsNotFound, true},
		{"not found rejects other kind", New(ErrKindIOFailure, "x"), IsNotFound, false},
		{"io failure matches", Wrap(ErrKindIOFailure, "x", errors.New("y")), IsIOFailure, true},
		{"malformed matches", New(ErrKindMalformedData, "x"), IsMalformedData, true},
		{"invalid input matches", New(ErrKindInvalidInput, "x"), IsInvalidInput, true},
		{"plain error matches nothing", errors.New("x"), IsNotFound, false},
		{"nil matches nothing", nil, IsIOFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(tt.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(ErrKindNotFound, "object missing")
	outer := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsNotFound(outer))
}
