package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Users can quote the code shown next to a failed pull, push or edit.
//
// # Grid Errors (GRID001-GRID099)
//
//	GRID001 - Duplicate element: The element is already in the table
//	          Action: The existing row was kept
//	          Patterns: "duplicate element"
//
//	GRID002 - Element not found: The edited row is no longer loaded
//	          Action: Refresh the table and try again
//	          Patterns: "element not found"
//
//	GRID003 - Session expired: The table session no longer exists
//	          Action: Reload the page to start a new session
//	          Patterns: "grid session not found"
//
//	GRID004 - Unknown column: The column does not exist
//	          Patterns: "unknown field"
//
//	GRID005 - Read-only column: Identity columns cannot be edited
//	          Patterns: "read-only field"
//
//	GRID006 - No backend: Pull and push are not configured
//	          Patterns: "no backend configured"
//
//	GRID007 - No viewer: No 3D viewer is attached to this session
//	          Patterns: "no viewer connected"
//
// # Network Errors (NET001-NET099)
//
//	NET001 - Backend unreachable     Patterns: "connection refused", "no such host"
//	NET002 - Connection interrupted  Patterns: "connection reset", "eof"
//	NET003 - Backend rejected        Patterns: "unexpected status"
//	NET004 - Request cancelled       Patterns: "context canceled"
//	NET005 - Request timed out       Patterns: "context deadline exceeded", "timeout"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key            Patterns: "duplicate key", "violates unique"
//	DB002 - Deadlock                 Patterns: "deadlock"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date            Patterns: "invalid date"
//	VAL002 - Invalid number          Patterns: "invalid number", "viewer id must be", "numeric field must be"
//	VAL003 - Invalid page action     Patterns: "unknown page action"
//	VAL004 - Malformed request       Patterns: "invalid request"
//
// # Rate Limiting (RATE001-RATE002)
//
//	RATE001 - Too many requests      Patterns: "rate limit"
//	RATE002 - Backend busy           Patterns: "too many concurrent"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Grid Errors (GRID001-GRID007)
	// =========================================================================
	{
		pattern: "duplicate element",
		msg: UserMessage{
			Message: "This element is already in the table",
			Action:  "The existing row was kept",
			Code:    "GRID001",
		},
	},
	{
		pattern: "element not found",
		msg: UserMessage{
			Message: "The edited row is no longer loaded",
			Action:  "Refresh the table and try again",
			Code:    "GRID002",
		},
	},
	{
		pattern: "grid session not found",
		msg: UserMessage{
			Message: "The table session no longer exists",
			Action:  "Reload the page to start a new session",
			Code:    "GRID003",
		},
	},
	{
		pattern: "unknown field",
		msg: UserMessage{
			Message: "The column does not exist",
			Action:  "Check the column name",
			Code:    "GRID004",
		},
	},
	{
		pattern: "read-only field",
		msg: UserMessage{
			Message: "This column cannot be edited",
			Action:  "dbId and row number are assigned automatically",
			Code:    "GRID005",
		},
	},
	{
		pattern: "no backend configured",
		msg: UserMessage{
			Message: "Pull and push are not available",
			Action:  "Configure a database or backend URL",
			Code:    "GRID006",
		},
	},
	{
		pattern: "no viewer connected",
		msg: UserMessage{
			Message: "No 3D viewer is attached to this session",
			Action:  "Open the viewer and try again",
			Code:    "GRID007",
		},
	},

	// =========================================================================
	// Network Errors (NET001-NET005)
	// Pull and push failures are reported once and never retried.
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the backend",
			Action:  "Please try again in a few moments",
			Code:    "NET001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Unable to reach the backend",
			Action:  "Check the backend address",
			Code:    "NET001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Connection to the backend was interrupted",
			Action:  "Please try again",
			Code:    "NET002",
		},
	},
	{
		pattern: "unexpected status",
		msg: UserMessage{
			Message: "The backend rejected the request",
			Action:  "Your local changes were kept. Please try again",
			Code:    "NET003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "NET004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try pulling fewer disciplines or try again later",
			Code:    "NET005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "NET005",
		},
	},
	{
		pattern: "eof",
		msg: UserMessage{
			Message: "Connection to the backend was interrupted",
			Action:  "Please try again",
			Code:    "NET002",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB002)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "An element with this dbId already exists",
			Action:  "Pull the latest data before pushing",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "An element with this dbId already exists",
			Action:  "Pull the latest data before pushing",
			Code:    "DB001",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL004)
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use a plain decimal number",
			Code:    "VAL002",
		},
	},
	{
		pattern: "viewer id must be",
		msg: UserMessage{
			Message: "The viewer sent an invalid element id",
			Action:  "Reselect the elements in the viewer",
			Code:    "VAL002",
		},
	},
	{
		pattern: "numeric field must be",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Send numeric fields as numbers or null",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown page action",
		msg: UserMessage{
			Message: "Unknown page action",
			Action:  "Use first, prev, next or last",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body and parameters",
			Code:    "VAL004",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001-RATE002)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "The backend is busy with other transfers",
			Action:  "Wait a few seconds and pull or push again",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
