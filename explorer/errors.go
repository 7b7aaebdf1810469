package explorer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidPath is returned when a path does not normalize to a location
	// on or under the mount root. Such paths never reach the gateway.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidInput is returned for blank names on create and rename.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBusy is returned when a remote operation is requested while another
	// one is still in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrUserCancelled is returned by source and destination suppliers when the
	// user backs out. The affected item is skipped, not failed.
	ErrUserCancelled = errors.New("cancelled by user")
)

// RemoteIOError is any failure reported by the gateway. Detail is kept
// verbatim for display.
type RemoteIOError struct {
	Op     string
	Path   string
	Detail string
}

func (e *RemoteIOError) Error() string {
	return e.Detail
}

// NewRemoteIOError builds a RemoteIOError from a gateway failure.
func NewRemoteIOError(op, path string, err error) *RemoteIOError {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return &RemoteIOError{Op: op, Path: path, Detail: detail}
}

// asRemoteIOError keeps an existing RemoteIOError as is and wraps anything
// else into one.
func asRemoteIOError(op, path string, err error) *RemoteIOError {
	var rerr *RemoteIOError
	if errors.As(err, &rerr) {
		return rerr
	}
	return NewRemoteIOError(op, path, err)
}

func invalidPath(root, p, reason string) error {
	return errors.Wrapf(ErrInvalidPath, "%q under %q: %s", p, root, reason)
}

func invalidInput(format string, args ...any) error {
	return errors.Wrap(ErrInvalidInput, fmt.Sprintf(format, args...))
}
