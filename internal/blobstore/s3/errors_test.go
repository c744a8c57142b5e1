package s3

import (
	"context"
	"errors"
	"net/http"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/LarsVonQualen/quick-api/internal/errs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{
			"object missing",
			miniogo.ErrorResponse{StatusCode: http.StatusNotFound, Code: "NoSuchKey"},
			errs.IsNotFound,
		},
		{
			"no such bucket without status",
			miniogo.ErrorResponse{Code: "NoSuchBucket"},
			errs.IsNotFound,
		},
		{
			"bad request",
			miniogo.ErrorResponse{StatusCode: http.StatusBadRequest, Code: "InvalidArgument"},
			errs.IsInvalidInput,
		},
		{
			"access denied",
			miniogo.ErrorResponse{StatusCode: http.StatusForbidden, Code: "AccessDenied"},
			errs.IsIOFailure,
		},
		{"deadline", context.DeadlineExceeded, errs.IsIOFailure},
		{"plain error", errors.New("boom"), errs.IsIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.err, "op failed")
			assert.True(t, tt.pred(mapped), "got %v", mapped)
		})
	}

	assert.Nil(t, mapError(nil, "x"))
}
