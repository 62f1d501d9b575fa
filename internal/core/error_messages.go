package core

// Error Codes Reference
//
// User-facing messages carry a code that support staff can look up.
// Codes are grouped by category:
//
//	VAL001 - Validation failed: one or more fields are invalid
//	VAL002 - Invalid email
//	VAL003 - Invalid phone
//	VAL004 - Required field missing
//	VAL005 - Value not in the allowed list
//
//	IMP001 - Import rejected: one or more rows are invalid
//	IMP002 - Too many rows in the file
//	IMP003 - No file provided
//	IMP004 - File is not valid CSV
//	IMP005 - System busy with other imports
//	IMP006 - Upload exceeds the size limit
//
//	BUY001 - Buyer not found
//	BUY002 - Buyer changed since it was loaded
//
//	DB001  - Duplicate record
//	DB002  - Connection refused
//	DB003  - Connection reset
//	DB004  - Timeout
//	DB005  - Deadlock
//
//	AUTH001 - Not signed in
//	RATE001 - Too many requests
//	ARC001  - Archive not configured
//
//	ERR000 - Unknown error, check the application log for the technical error
//
// Sentinel errors are matched first with errors.Is. Anything else falls
// through to case-insensitive substring patterns; the first match wins.

import (
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

var errorKinds = []errorKind{
	{ErrValidation, UserMessage{"Some fields are invalid", "Correct the highlighted fields and try again", "VAL001"}},
	{ErrImportRejected, UserMessage{"The file contains invalid rows", "Fix the listed rows and upload the file again", "IMP001"}},
	{ErrCapacity, UserMessage{"The file has too many rows", "Split the file into smaller files", "IMP002"}},
	{ErrTooManyImports, UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP005"}},
	{ErrNotFound, UserMessage{"Buyer not found", "It may have been deleted. Reload the list", "BUY001"}},
	{ErrConflict, UserMessage{"This buyer was changed by someone else", "Reload the buyer and apply your changes again", "BUY002"}},
	{ErrUnauthenticated, UserMessage{"You are not signed in", "Sign in and try again", "AUTH001"}},
	{ErrArchiveDisabled, UserMessage{"Export archiving is not configured", "Download the export instead", "ARC001"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"invalid email", UserMessage{"Invalid email address", "Enter an address like name@example.com", "VAL002"}},
	{"phone must be", UserMessage{"Invalid phone number", "Use 10 to 15 digits without spaces or symbols", "VAL003"}},
	{"is required", UserMessage{"Required field is empty", "Fill in all required fields", "VAL004"}},
	{"must be one of", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", "VAL005"}},
	{"no file provided", UserMessage{"No file was selected", "Select a CSV file to import", "IMP003"}},
	{"request body too large", UserMessage{"The file is too large", "Upload a smaller file", "IMP006"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with a header row", "IMP004"}},

	{"duplicate key", UserMessage{"A record with this ID already exists", "Please try again", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB002"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB003"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Please try again later", "DB004"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB005"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
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
