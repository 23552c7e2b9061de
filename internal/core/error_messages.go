// Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Not found: No grade data has been loaded yet
//	         Action: Import a CSV or Excel file with grades
//	         Match: errors.Is(err, ErrNotFound)
//
//	SRC002 - Student not found: No grades exist for the requested student
//	         Action: Check the student ID
//	         Patterns: "student not found"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unreadable file: File could not be decoded
//	          Action: Save the file as UTF-8 CSV or .xlsx
//	          Match: errors.Is(err, ErrDecode)
//
//	FILE003 - Unsupported format: Only .csv, .xlsx and .xls are accepted
//	          Action: Convert the file to CSV or Excel
//	          Match: errors.Is(err, ErrUnsupportedFormat)
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload a file with data rows
//	          Patterns: "empty file"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid table: File does not match the grade table layout
//	         Action: Check the listed violations and fix the file
//	         Match: errors.Is(err, ErrValidation)
//
//	VAL002 - Invalid grading system: Grading system settings are invalid
//	         Action: Check system_type and the grade range
//	         Patterns: "invalid grading system"
//
//	VAL003 - Invalid parameter: A query parameter could not be parsed
//	         Action: Check the request parameters
//	         Patterns: "invalid parameter"
//
//	VAL004 - Invalid grade range: Allowed grade range is invalid
//	         Action: Set INGEST_MIN_GRADE below INGEST_MAX_GRADE
//	         Match: errors.Is(err, ErrGradeRange)
//
// # Cache Errors (CACHE001-CACHE099)
//
//	CACHE001 - Cache unreadable: Cached data could not be read
//	           Action: Reload the data; the cache will be rebuilt
//	           Match: errors.Is(err, ErrCacheRead)
//
// # Request Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many imports in progress
//	         Action: Please wait a moment and try again
//	         Match: errors.Is(err, ErrTooManyImports)
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Match: errors.Is(err, context.Canceled)
//
//	UPL005 - Request timeout: Request timed out
//	         Action: Try a smaller file or check your connection
//	         Match: errors.Is(err, context.DeadlineExceeded)
//
// # Database Errors (DB001-DB099)
//
//	DB004 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Matching
//
// Sentinel targets are tried first with errors.Is, then the patterns are
// matched case-insensitively using strings.Contains. The first match wins.
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Check the associated match to understand what triggered it
//  3. Review the suggested action to guide the user
//  4. If ERR000, check application logs for the original technical error
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorTarget maps a sentinel error to its user message.
type errorTarget struct {
	target error
	msg    UserMessage
}

// errorTargets are matched with errors.Is before any pattern.
var errorTargets = []errorTarget{
	{
		target: ErrNotFound,
		msg: UserMessage{
			Message: "No grade data has been loaded yet",
			Action:  "Import a CSV or Excel file with grades",
			Code:    "SRC001",
		},
	},
	{
		target: ErrDecode,
		msg: UserMessage{
			Message: "File could not be decoded",
			Action:  "Save the file as UTF-8 CSV or .xlsx",
			Code:    "FILE002",
		},
	},
	{
		target: ErrUnsupportedFormat,
		msg: UserMessage{
			Message: "Only .csv, .xlsx and .xls files are accepted",
			Action:  "Convert the file to CSV or Excel",
			Code:    "FILE003",
		},
	},
	{
		target: ErrValidation,
		msg: UserMessage{
			Message: "File does not match the grade table layout",
			Action:  "Check the listed violations and fix the file",
			Code:    "VAL001",
		},
	},
	{
		target: ErrGradeRange,
		msg: UserMessage{
			Message: "Allowed grade range is invalid",
			Action:  "Set INGEST_MIN_GRADE below INGEST_MAX_GRADE",
			Code:    "VAL004",
		},
	},
	{
		target: ErrCacheRead,
		msg: UserMessage{
			Message: "Cached data could not be read",
			Action:  "Reload the data; the cache will be rebuilt",
			Code:    "CACHE001",
		},
	},
	{
		target: ErrTooManyImports,
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with data rows",
			Code:    "FILE005",
		},
	},

	{
		pattern: "student not found",
		msg: UserMessage{
			Message: "No grades exist for the requested student",
			Action:  "Check the student ID",
			Code:    "SRC002",
		},
	},

	// =========================================================================
	// Validation Errors
	// =========================================================================
	{
		pattern: "invalid grading system",
		msg: UserMessage{
			Message: "Grading system settings are invalid",
			Action:  "Check system_type and the grade range",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "A query parameter could not be parsed",
			Action:  "Check the request parameters",
			Code:    "VAL003",
		},
	},

	// =========================================================================
	// Database and Rate Limiting
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("load: %w", ErrNotFound))
//	// msg.Code == "SRC001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, et := range errorTargets {
		if errors.Is(err, et.target) {
			return et.msg
		}
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
