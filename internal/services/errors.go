package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error markers. Every error that crosses a package boundary is tagged with
// exactly one of these so callers can classify failures with errors.Is.
var (
	// ErrInput marks malformed images, unreadable files, or invalid structured data.
	ErrInput = errors.New("input error")
	// ErrNotFound marks references to unknown cluster or item identifiers.
	ErrNotFound = errors.New("not found")
	// ErrExternalCall marks OCR or embedding failures, including timeouts.
	ErrExternalCall = errors.New("external call failure")
	// ErrConsistency marks operations that would break store invariants.
	ErrConsistency = errors.New("consistency error")
	// ErrTimeout is wrapped together with ErrExternalCall when a call exceeds its deadline.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInput
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable short name for the marker carried by err. Untagged
// errors report "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConsistency):
		return "consistency"
	case errors.Is(err, ErrExternalCall), errors.Is(err, ErrTimeout):
		return "external_call"
	case errors.Is(err, ErrInput):
		return "input"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
