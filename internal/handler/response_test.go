package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"ridebook/internal/repository"
	"ridebook/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("ride r1: %w", repository.ErrNotFound), http.StatusNotFound},
		{service.ErrPriceTooLow, http.StatusBadRequest},
		{service.ErrUnknownLocation, http.StatusBadRequest},
		{fmt.Errorf("%w: user u1", service.ErrInsufficientBalance), http.StatusPaymentRequired},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrAlreadyAccepted, http.StatusConflict},
		{fmt.Errorf("%w: ride r1 is COMPLETED", service.ErrInvalidTransition), http.StatusConflict},
		{repository.ErrDuplicate, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapErrorToHTTPStatus(tt.err); got != tt.want {
			t.Errorf("mapErrorToHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
