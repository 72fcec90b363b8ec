package web

// messages.go maps errors to messages safe to show an operator.
//
// Codes are grouped by category:
//
//	RUN001 - A run is already in progress (409)
//	RUN002 - Unknown entity requested (400)
//	RUN003 - Run not found or already evicted from history (404)
//	SRC001 - A source is missing required columns
//	DB001  - Connection refused
//	DB002  - Connection reset
//	DB003  - Timeout
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	RATE001 - Too many requests
//	ERR000 - Anything else; the technical error is in the server log
//
// Sentinel errors are matched with errors.Is before any text pattern.
// Text patterns are matched case-insensitively and the first match wins.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/pipeline"
	"github.com/JonMunkholm/salesetl/internal/service"
)

// errRunNotFound is returned for run IDs absent from history.
var errRunNotFound = errors.New("run not found")

// UserMessage is an operator-facing description of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Stable code for log correlation
}

type sentinelMessage struct {
	err    error
	status int
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{service.ErrRunInProgress, http.StatusConflict, UserMessage{
		Message: "A pipeline run is already in progress",
		Action:  "Wait for it to finish, then try again",
		Code:    "RUN001",
	}},
	{pipeline.ErrUnknownEntity, http.StatusBadRequest, UserMessage{
		Message: "Unknown entity",
		Action:  "Use one of the keys listed at /api/entities",
		Code:    "RUN002",
	}},
	{errRunNotFound, http.StatusNotFound, UserMessage{
		Message: "Run not found",
		Action:  "Only the most recent runs are kept",
		Code:    "RUN003",
	}},
	{core.ErrMissingColumns, http.StatusInternalServerError, UserMessage{
		Message: "A source is missing required columns",
		Action:  "Check the source schema against the entity field list",
		Code:    "SRC001",
	}},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, UserMessage{
		Message: "Request timed out",
		Action:  "Please try again",
		Code:    "REQ002",
	}},
	{context.Canceled, http.StatusServiceUnavailable, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again later",
		Code:    "DB003",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the server log for details",
	Code:    "ERR000",
}

// MapError converts err to a UserMessage. A nil error maps to the zero value.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}
	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// statusFor returns the HTTP status for err.
func statusFor(err error) int {
	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
