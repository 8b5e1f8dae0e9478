package usecase_test

import (
	"errors"
	"testing"

	"github.com/hearth-archive/hearth/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestErrors_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidRequest", usecase.ErrInvalidRequest},
		{"ErrInvalidTrigger", usecase.ErrInvalidTrigger},
		{"ErrInvalidAction", usecase.ErrInvalidAction},
		{"ErrInvalidRole", usecase.ErrInvalidRole},
		{"ErrAckForbidden", usecase.ErrAckForbidden},
		{"ErrClientNotConnected", usecase.ErrClientNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.err).NotNil()
		})
	}
}

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	gt.Bool(t, errors.Is(usecase.ErrInvalidRequest, usecase.ErrInvalidAction)).False()
	gt.Bool(t, errors.Is(usecase.ErrInvalidTrigger, usecase.ErrInvalidRole)).False()
}
