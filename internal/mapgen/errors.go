package mapgen

import (
	"errors"
	"fmt"
)

const (
	// The source asset must be fixed: duplicate layers, missing player
	// layer, oversized sprites, mixed animation durations.
	ErrConfig = "E_CONFIG"
	// A tileset, image or mission file could not be read or decoded.
	ErrResource = "E_RESOURCE"
	// Internal consistency failures; these indicate a compiler bug.
	ErrInvariant = "E_INVARIANT"
	// The API was used incorrectly, e.g. a generator run twice.
	ErrUsage = "E_USAGE"
)

// Error is a compile failure tagged with one of the codes above.
type Error struct {
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return e.Code + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrGeneratorUsed is returned by a second call to Generate.
var ErrGeneratorUsed = &Error{Code: ErrUsage, Msg: "a generator instance can only be used once"}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func configErrorf(format string, args ...any) error {
	return &Error{Code: ErrConfig, Msg: fmt.Sprintf(format, args...)}
}

func invariantErrorf(format string, args ...any) error {
	return &Error{Code: ErrInvariant, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(code string, err error, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

func usageErrorf(format string, args ...any) error {
	return &Error{Code: ErrUsage, Msg: fmt.Sprintf(format, args...)}
}
