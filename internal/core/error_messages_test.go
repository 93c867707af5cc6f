package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "duplicate element maps correctly",
			err:         &DuplicateError{DbID: 42},
			wantCode:    "GRID001",
			wantMessage: "This element is already in the table",
		},
		{
			name:        "wrapped element not found maps correctly",
			err:         fmt.Errorf("edit: %w", ErrElementNotFound),
			wantCode:    "GRID002",
			wantMessage: "The edited row is no longer loaded",
		},
		{
			name:        "session not found maps correctly",
			err:         fmt.Errorf("%w: abc", ErrSessionNotFound),
			wantCode:    "GRID003",
			wantMessage: "The table session no longer exists",
		},
		{
			name:        "read-only field maps correctly",
			err:         &FieldError{Field: FieldDbID, Err: ErrReadOnlyField},
			wantCode:    "GRID005",
			wantMessage: "This column cannot be edited",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New(`Get "http://backend/api/data": dial tcp: connection refused`),
			wantCode:    "NET001",
			wantMessage: "Unable to reach the backend",
		},
		{
			name:        "deadline maps before generic timeout",
			err:         errors.New("pull: context deadline exceeded"),
			wantCode:    "NET005",
			wantMessage: "Request timed out",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "An element with this dbId already exists",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("UNEXPECTED STATUS 502"),
			wantCode:    "NET003",
			wantMessage: "The backend rejected the request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(&DuplicateError{DbID: 7})

	expected := "This element is already in the table (Code: GRID001). The existing row was kept"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrNoBackend,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("push: %w", errors.New("unexpected status 500"))
		userErr := NewUserError(techErr)

		if userErr.Error() != "The backend rejected the request" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
