package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivlev/codeanim/internal/config"
)

// Kind classifies export failures.
type Kind int

const (
	KindInvalidConfiguration Kind = iota + 1
	KindUnsupportedFormat
	KindCapabilityUnavailable
	KindRasterization
	KindEncoding
	KindResourceCleanup
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "invalid configuration"
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindCapabilityUnavailable:
		return "capability unavailable"
	case KindRasterization:
		return "rasterization failure"
	case KindEncoding:
		return "encoding failure"
	case KindResourceCleanup:
		return "resource cleanup failure"
	case KindCanceled:
		return "canceled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single failure value an export run delivers.
type Error struct {
	Kind   Kind
	Format Format
	Err    error
}

func (e *Error) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s export: %s: %v", e.Format, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Rasterization tags err as a capture failure.
func Rasterization(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindRasterization, Err: err}
}

// Encoding tags err as a container or codec failure.
func Encoding(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindEncoding, Err: err}
}

// Unavailable tags err as a failed capability probe.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindCapabilityUnavailable, Err: err}
}

// classify turns any error raised during a run into an *Error carrying
// format. fallback applies to errors that carry no kind yet.
func classify(ctx context.Context, format Format, err error, fallback Kind) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		if KindOf(err) != KindCanceled {
			return &Error{Kind: KindCanceled, Format: format, Err: err}
		}
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Format == "" {
			return &Error{Kind: e.Kind, Format: format, Err: e.Err}
		}
		return e
	}

	if errors.Is(err, config.ErrInvalidConfig) {
		return &Error{Kind: KindInvalidConfiguration, Format: format, Err: err}
	}
	return &Error{Kind: fallback, Format: format, Err: err}
}
