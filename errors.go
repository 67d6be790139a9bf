package nativetray

import (
	"errors"
	"fmt"

	"github.com/shelepuginivan/nativetray/native"
)

var (
	// ErrMenuPopulated is returned by [Menu.Build] on a menu that was already
	// built.
	ErrMenuPopulated = errors.New("menu already populated")

	// ErrInvalidItem is returned when a [MenuItem] cannot be resolved to a
	// single entry kind.
	ErrInvalidItem = errors.New("invalid menu item")
)

// NativeCreationError is returned when a native factory call (tray, menu or
// submenu creation) returns null.
type NativeCreationError struct {
	// Op is the failed operation, e.g. "create tray".
	Op string

	// Message is the native error string read right after the failed call.
	Message string
}

func (e *NativeCreationError) Error() string {
	if e.Message == "" {
		return e.Op + ": native call failed"
	}
	return e.Op + ": " + e.Message
}

// InvalidPositionError is returned when the native library rejects an entry
// insertion. The native API uses the same null result for out-of-range
// positions and allocation failures, so both end up here.
type InvalidPositionError struct {
	Pos     int
	Message string
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("insert entry at %d: %s", e.Pos, e.Message)
}

// UseAfterDestroyError is returned by operations on a wrapper whose native
// object was freed, either by [Tray.Destroy] or by removing an entry.
type UseAfterDestroyError struct {
	Op string
}

func (e *UseAfterDestroyError) Error() string {
	return e.Op + ": native object already destroyed"
}

// creationError reads the native error string. It must be called before any
// other native call, which may overwrite the string.
func creationError(lib native.Library, op string) error {
	return &NativeCreationError{Op: op, Message: lib.Error()}
}
