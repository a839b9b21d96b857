package textbatch

import (
	"errors"
	"fmt"

	"github.com/gogpu/textbatch/text"
)

// Sentinel errors for textbatch package.
var (
	// ErrNilBackend is returned when a Context is created without a backend.
	ErrNilBackend = errors.New("textbatch: nil backend")

	// ErrNoFont is returned by Layout.Update when the layout has no usable font.
	ErrNoFont = errors.New("textbatch: layout has no font")

	// ErrClosed is returned when a closed Context, Layout or Renderer is used.
	ErrClosed = errors.New("textbatch: closed")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("textbatch: invalid config")
)

// RangeError is returned when a codepoint range cannot be rasterized or
// uploaded. The layout that hit it keeps drawing its previous batches.
type RangeError struct {
	Font     FontKey
	Index    int
	From, To text.Codepoint
	Err      error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("textbatch: range %d [U+%04X, U+%04X) of %s: %v", e.Index, e.From, e.To, e.Font, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }
