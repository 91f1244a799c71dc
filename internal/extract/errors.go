package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRetriesExhausted is returned when every attempt at the primary strategy failed transiently
	ErrRetriesExhausted = errors.New("extraction retries exhausted")

	// ErrNoStrategy is returned when the requested method has no strategy configured
	ErrNoStrategy = errors.New("no extraction strategy available")

	// ErrUnknownMethod is returned for a method other than primary, secondary or auto
	ErrUnknownMethod = errors.New("unknown extraction method")
)

// FatalError marks a primary strategy failure that retrying cannot fix
type FatalError struct {
	Strategy string
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal extraction error: %v", e.Strategy, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// ErrorClass is the retry classification of a strategy error
type ErrorClass string

const (
	ClassTransient ErrorClass = "transient"
	ClassFatal     ErrorClass = "fatal"
)

// transientMarkers are matched against the lowercased error message.
// Strategies are opaque, so the message is the only signal available.
var transientMarkers = []string{
	"429",
	"503",
	"rate limit",
	"ratelimit",
	"too many requests",
	"resource exhausted",
	"resource_exhausted",
	"overloaded",
	"unavailable",
	"timeout",
	"timed out",
	"deadline exceeded",
}

// Classify reports whether err looks transient. Anything without a transient
// marker is fatal.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassFatal
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	return ClassFatal
}

// IsFatal reports whether err carries a FatalError
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
