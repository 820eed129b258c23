package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into the fixed catalog surfaced to the client.
type Kind string

const (
	// Ingestion failures.
	KindInvalidFormat Kind = "invalid_format"
	KindTooLarge      Kind = "too_large"
	KindUnknown       Kind = "unknown"

	// Inference failures.
	KindTimeout           Kind = "timeout"
	KindCancelled         Kind = "cancelled"
	KindAPI               Kind = "api_error"
	KindMalformedResponse Kind = "malformed_response"
	KindParse             Kind = "parse_error"

	// Synthesis failures.
	KindEmptyInput Kind = "empty_input"
	KindConfig     Kind = "config_error"
	KindDecode     Kind = "decode_error"

	// Platform failures.
	KindStorage   Kind = "storage"
	KindBootstrap Kind = "bootstrap"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// KindOf extracts the catalog kind from the chain, defaulting to KindUnknown.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

var userMessages = map[Kind]string{
	KindInvalidFormat:     "Unsupported image format. Please upload JPG, PNG, GIF or WebP.",
	KindTooLarge:          "Image exceeds the 10 MB limit. Please upload a smaller file.",
	KindUnknown:           "An unknown error occurred. Please try again.",
	KindTimeout:           "Analysis timed out after 30 seconds. Please check your network and retry.",
	KindCancelled:         "Operation cancelled.",
	KindAPI:               "The AI service is temporarily unavailable. Please try again later.",
	KindMalformedResponse: "The AI service returned unexpected data. Please retry.",
	KindParse:             "Failed to parse the analysis result. Please retry.",
	KindEmptyInput:        "Text must not be empty.",
	KindConfig:            "Service configuration is incomplete. Please check environment variables.",
	KindDecode:            "Failed to decode the audio payload.",
	KindStorage:           "Local storage is unavailable.",
}

// UserMessage maps an error to its fixed user-facing text. Remote API errors
// carrying a message from the upstream payload keep that message; everything
// else is drawn from the catalog so no raw internals reach the client.
func UserMessage(err error) string {
	var target *Error
	if errors.As(err, &target) {
		if target.Kind == KindAPI && target.Message != "" {
			return target.Message
		}
		if msg, ok := userMessages[target.Kind]; ok {
			return msg
		}
	}
	return userMessages[KindUnknown]
}
