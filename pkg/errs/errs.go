/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package errs defines the error kinds the search core reports to its
// caller, per spec.md §7. None of these are recovered inside the core;
// per-candidate data rejections are silent and are not errors at all.
package errs

/*****************************************************************************************************************/

import "fmt"

/*****************************************************************************************************************/

type Kind int

/*****************************************************************************************************************/

const (
	// ConfigInvalid indicates a bad range or an unknown enum value in a
	// recognized configuration key.
	ConfigInvalid Kind = iota
	// InputInconsistent indicates a dimension mismatch or a non-positive
	// variance where the mask claims a pixel is valid.
	InputInconsistent
	// ResourceExhausted indicates a device or host allocation failure.
	ResourceExhausted
	// Cancelled indicates the caller's cancellation token fired mid-search.
	Cancelled
)

/*****************************************************************************************************************/

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "ConfigInvalid"
	case InputInconsistent:
		return "InputInconsistent"
	case ResourceExhausted:
		return "ResourceExhausted"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

/*****************************************************************************************************************/

// Error wraps a Kind and an underlying cause.
type Error struct {
	Kind  Kind
	Cause error
}

/*****************************************************************************************************************/

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

/*****************************************************************************************************************/

func (e *Error) Unwrap() error {
	return e.Cause
}

/*****************************************************************************************************************/

// New constructs an Error of the given kind, wrapping a formatted cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

/*****************************************************************************************************************/
