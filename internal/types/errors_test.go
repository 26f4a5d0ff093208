package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the "code: message" format.
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationVariant,
		Message: "variant must be A or B",
	}

	expected := "validation_invalid_variant: variant must be A or B"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeConflictStageAlreadySent, "day3 already sent", nil)
	wrappedErr := fmt.Errorf("advance failed: %w", appErr)

	var target *AppError
	if !errors.As(wrappedErr, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeConflictStageAlreadySent {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeConflictStageAlreadySent)
	}
}

func TestAppErrorErrorsIs(t *testing.T) {
	sentinel := errors.New("sentinel")
	appErr := NewAppError(ErrCodeInternalDB, "query failed", sentinel)

	if !errors.Is(appErr, sentinel) {
		t.Error("errors.Is should find the sentinel error through Unwrap")
	}
}

func TestNewAppErrorWithDetails(t *testing.T) {
	appErr := NewAppErrorWithDetails(
		ErrCodeValidationStage,
		"unknown stage",
		nil,
		map[string]any{"stage": "day5"},
	)

	if appErr.Details["stage"] != "day5" {
		t.Errorf("Details[\"stage\"] = %v, want \"day5\"", appErr.Details["stage"])
	}
}

func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(
		ErrCodeValidationMissingField,
		"field is required",
		nil,
		map[string]any{"field": "city"},
	)

	enhanced := original.WithDetails(map[string]any{"field": "region", "hint": "two-letter code"})

	if _, ok := original.Details["hint"]; ok {
		t.Error("WithDetails should not mutate the original error")
	}
	if original.Details["field"] != "city" {
		t.Errorf("original field = %v, want city", original.Details["field"])
	}
	if enhanced.Details["field"] != "region" {
		t.Errorf("enhanced field = %v, want region", enhanced.Details["field"])
	}
	if enhanced.Code != original.Code || enhanced.Message != original.Message {
		t.Error("Code and Message should carry over")
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidEmail, http.StatusBadRequest},
		{ErrCodeValidationPayload, http.StatusBadRequest},
		{ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{ErrCodeNotFoundSequence, http.StatusNotFound},
		{ErrCodeConflictRunInProgress, http.StatusConflict},
		{ErrCodeEmailBlocked, http.StatusUnprocessableEntity},
		{ErrCodeUpstreamEmailProvider, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
			if got := NewAppError(tt.code, "x", nil).HTTPStatus(); got != tt.want {
				t.Errorf("AppError.HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorCodeIsValidation(t *testing.T) {
	if !ErrCodeValidationVariant.IsValidation() {
		t.Error("validation code should report IsValidation")
	}
	if ErrCodeInternalDB.IsValidation() {
		t.Error("internal code should not report IsValidation")
	}
}
