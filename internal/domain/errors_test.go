package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrNoFaceDetected,
			expected: "No face detected in the image",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	if got := ErrInvalidImage.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("db connection failed")
	newErr := ErrInternal.WithError(underlying)

	if newErr.Code != ErrInternal.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrInternal.Code)
	}

	if newErr.StatusCode != ErrInternal.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrInternal.StatusCode)
	}

	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}

	if !errors.Is(newErr, ErrInternal) {
		t.Errorf("errors.Is should match the sentinel by code")
	}
}

func TestAppError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("generate embedding: %w", ErrNoFaceDetected.WithError(nil))

	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected wrapped copy to match ErrNoFaceDetected")
	}
	if errors.Is(err, ErrInvalidImage) {
		t.Errorf("different codes must not match")
	}
}

func TestAppError_WithMessage(t *testing.T) {
	err := ErrTooManyImages.WithMessage("Maximum 4 images allowed")

	if err.Message != "Maximum 4 images allowed" {
		t.Errorf("Message = %v", err.Message)
	}
	if err.StatusCode != 400 {
		t.Errorf("StatusCode = %v, want 400", err.StatusCode)
	}
	if ErrTooManyImages.Message == err.Message {
		t.Errorf("sentinel must not be mutated")
	}
}
