package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrRowConfirmed    = errors.New("row is confirmed")
	ErrIndexOutOfRange = errors.New("row index out of range")
)

// ParseError reports bulk input that produced no usable rows.
type ParseError struct {
	Missing []string
	Reason  string
}

func (e *ParseError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

// ImportError is a transport or server failure of a batch import.
type ImportError struct {
	Status  int
	Message string
	Err     error
}

func (e *ImportError) Error() string {
	return remoteErrorText("import failed", e.Status, e.Message, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ExtractionError is a transport or server failure of an extraction or run-history call.
type ExtractionError struct {
	Status  int
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	return remoteErrorText("extraction failed", e.Status, e.Message, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func remoteErrorText(prefix string, status int, msg string, err error) string {
	switch {
	case msg != "" && status != 0:
		return fmt.Sprintf("%s (status %d): %s", prefix, status, msg)
	case msg != "":
		return fmt.Sprintf("%s: %s", prefix, msg)
	case err != nil:
		return fmt.Sprintf("%s: %v", prefix, err)
	case status != 0:
		return fmt.Sprintf("%s: status %d", prefix, status)
	default:
		return prefix
	}
}
