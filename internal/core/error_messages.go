package core

// # Error Codes Reference
//
// User-visible failures carry a code that can be quoted to support staff.
// Sentinel errors are matched first with errors.Is; anything else falls back
// to case-insensitive substring patterns on the error text.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - No valid records: the file has no usable compatibility rows
//	         Action: Check each row has a model name and a compatibility list
//	         Sentinel: catalog.ErrNoValidRecords
//
//	IMP002 - Unreadable file: the import stream failed part way through
//	         Action: Check the file is a complete CSV and upload it again
//	         Sentinel: catalog.ErrRead
//
//	IMP003 - Import failed: nothing was stored, previous catalog kept
//	         Action: Fix the reported problem and retry the import
//	         Sentinel: ErrIngestionFailed
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Record not found
//	         Action: Search again, the catalog may have been replaced
//	         Sentinel: ErrNotFound
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request parameters
//	         Sentinel: ErrInvalidInput
//
// # Auth Errors (AUTH001-AUTH099)
//
//	AUTH001 - Not authorized
//	          Sentinel: ErrUnauthorized
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: too many imports in progress (ErrTooManyImports)
//	UPL002 - Request cancelled (context.Canceled)
//	UPL003 - Request timeout (context.DeadlineExceeded)
//	UPL004 - File too large (patterns "file too large", "request body too large")
//	UPL005 - No file (pattern "no file provided")
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate model name (patterns "duplicate key", "unique constraint")
//	DB002 - Connection refused (pattern "connection refused")
//	DB003 - Connection reset (pattern "connection reset")
//	DB004 - Database busy (patterns "deadlock", "database is locked")
//	DB005 - Timeout (pattern "timeout")
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests (pattern "rate limit")
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the technical
// error; it is always logged next to the request id.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/compatdb/internal/catalog"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// sentinelMessages are checked in order; the first errors.Is match wins, so
// causes come before the wrappers that carry them.
var sentinelMessages = []sentinelMessage{
	{catalog.ErrNoValidRecords, UserMessage{
		Message: "The file contains no valid compatibility rows",
		Action:  "Check each row has a model name and a compatibility list",
		Code:    "IMP001",
	}},
	{catalog.ErrRead, UserMessage{
		Message: "The import file could not be read",
		Action:  "Check the file is a complete CSV and upload it again",
		Code:    "IMP002",
	}},
	{ErrIngestionFailed, UserMessage{
		Message: "The import could not be saved. The previous catalog is unchanged",
		Action:  "Fix the reported problem and retry the import",
		Code:    "IMP003",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "Too many imports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}},
	{ErrUnauthorized, UserMessage{
		Message: "You are not allowed to perform this action",
		Action:  "Provide a valid API key",
		Code:    "AUTH001",
	}},
	{ErrNotFound, UserMessage{
		Message: "Record not found",
		Action:  "Search again, the catalog may have been replaced",
		Code:    "REC001",
	}},
	{ErrInvalidInput, UserMessage{
		Message: "Invalid request parameters",
		Action:  "Check the request and try again",
		Code:    "VAL001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "UPL003",
	}},
}

// errorPattern maps a lower-case substring of a technical error to a message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch driver and transport errors that have no sentinel.
// The first match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"file too large", msgFileTooLarge},
	{"request body too large", msgFileTooLarge},
	{"no file provided", UserMessage{
		Message: "No file was provided",
		Action:  "Attach a CSV file in the \"file\" form field",
		Code:    "UPL005",
	}},
	{"duplicate key", msgDuplicate},
	{"unique constraint", msgDuplicate},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB003",
	}},
	{"deadlock", msgBusy},
	{"database is locked", msgBusy},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB005",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file or compress it with gzip",
		Code:    "UPL004",
	}
	msgDuplicate = UserMessage{
		Message: "A model name appears twice in the catalog",
		Action:  "Remove the repeated model name and retry",
		Code:    "DB001",
	}
	msgBusy = UserMessage{
		Message: "Database was busy with a conflicting operation",
		Action:  "Please try again",
		Code:    "DB004",
	}
)

// defaultMessage is returned when no specific pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
