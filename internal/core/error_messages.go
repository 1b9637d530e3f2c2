// Package core provides the matching engine for ICU surveillance-window audits.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Missing column: A selected column is not in the file
//	         Action: Re-check the column selection for the named table
//	         Patterns: "missing required column"
//
//	COL002 - Missing table: A required file was not uploaded
//	         Action: Upload both the ICU file and the culture file
//	         Patterns: "no file provided"
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid ward pattern: The ICU ward pattern is not a valid expression
//	         Action: Use plain ward names separated by |, e.g. NICU|NR
//	         Patterns: "invalid ward pattern"
//
//	CFG002 - Invalid option: An option value is not recognised
//	         Action: Check the allowed values for strategy, position and variant
//	         Patterns: "invalid strategy", "invalid position", "invalid variant"
//
//	CFG003 - Invalid profile: The matching profile could not be read
//	         Action: Check the YAML syntax of the profile file
//	         Patterns: "invalid profile"
//
// # Auxiliary Data Warnings (AUX001-AUX099)
//
// These are never errors; they are attached to a result as warnings.
//
//	AUX001 - Birth-date column rejected: most values are too short to be dates
//	AUX002 - Birth-date column partly parsed: many values could not be read
//	AUX003 - Combined sex field not split: the selected segment is empty
//	AUX004 - Registry list empty: no patient IDs in the registry file
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the upload size limit
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unsupported file: Not an xlsx or csv file
//	          Patterns: "unsupported file type", "not a valid zip file"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Patterns: "encoding error"
//
//	FILE004 - Invalid CSV: File is not a valid CSV
//	          Patterns: "invalid csv"
//
//	FILE005 - Empty file: The uploaded file has no header row
//	          Patterns: "empty file"
//
//	FILE006 - No census dates: Census files have no date-headed columns
//	          Patterns: "no census date columns"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many matches in progress
//	         Patterns: "too many runs"
//
//	RUN002 - Result expired: The run was not found
//	         Patterns: "run not found"
//
//	RUN003 - Request cancelled
//	         Patterns: "context canceled"
//
//	RUN004 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Request Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request: A form field is missing or malformed
//	         Patterns: "invalid request"
//
// # Storage Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to the run store
//	        Patterns: "connection refused"
//
//	DB002 - Timeout: Storage operation timed out
//	        Patterns: "timeout"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

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
	// Column Errors (COL001-COL002)
	// =========================================================================
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "A selected column is not in the file",
			Action:  "Re-check the column selection for the named table",
			Code:    "COL001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "A required file was not uploaded",
			Action:  "Upload both the ICU file and the culture file",
			Code:    "COL002",
		},
	},

	// =========================================================================
	// Configuration Errors (CFG001-CFG003)
	// =========================================================================
	{
		pattern: "invalid ward pattern",
		msg: UserMessage{
			Message: "The ICU ward pattern is not valid",
			Action:  "Use plain ward names separated by |, e.g. NICU|NR",
			Code:    "CFG001",
		},
	},
	{
		pattern: "invalid strategy",
		msg: UserMessage{
			Message: "Unknown matching strategy",
			Action:  "Use range or nearest",
			Code:    "CFG002",
		},
	},
	{
		pattern: "invalid position",
		msg: UserMessage{
			Message: "Unknown split position",
			Action:  "Use first or last",
			Code:    "CFG002",
		},
	},
	{
		pattern: "invalid variant",
		msg: UserMessage{
			Message: "Unknown export variant",
			Action:  "Use external or internal",
			Code:    "CFG002",
		},
	},
	{
		pattern: "invalid profile",
		msg: UserMessage{
			Message: "The matching profile could not be read",
			Action:  "Check the YAML syntax of the profile file",
			Code:    "CFG003",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the upload size limit",
			Action:  "Export a shorter date range and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload exceeds the size limit",
			Action:  "Export a shorter date range and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .xlsx and .csv files are supported",
			Action:  "Save the file as Excel workbook or CSV",
			Code:    "FILE002",
		},
	},
	{
		pattern: "not a valid zip file",
		msg: UserMessage{
			Message: "The file is not a valid Excel workbook",
			Action:  "Open the file in Excel and save it as .xlsx",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the CSV as UTF-8 or CP949",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no header row",
			Action:  "Upload a file whose first row holds the column names",
			Code:    "FILE005",
		},
	},
	{
		pattern: "no census date columns",
		msg: UserMessage{
			Message: "No daily columns were found in the census files",
			Action:  "Census columns must be headed like 2025.02.01",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Run Errors (RUN001-RUN004)
	// =========================================================================
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "System is busy processing other matches",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "This result is no longer available",
			Action:  "Run the match again to download the result",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try smaller files or check your connection",
			Code:    "RUN004",
		},
	},

	// =========================================================================
	// Request Errors (VAL001)
	// =========================================================================
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is missing a field or has an invalid value",
			Action:  "Check the highlighted fields and submit again",
			Code:    "VAL001",
		},
	},

	// =========================================================================
	// Storage Errors (DB001-DB002)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the result store",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := &ColumnError{Table: "cultures", Column: "시행일"}
//	msg := MapError(err)
//	// msg.Code == "COL001"
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
	return MapError(err).Code != defaultMessage.Code
}
