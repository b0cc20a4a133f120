package imu

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Init when no registered family answered on the bus.
	ErrNotFound = errors.New("no supported IMU found")
	// ErrUnsupported is returned for operations or mode bits the active family cannot do.
	ErrUnsupported = errors.New("not supported by this IMU")
)

// TransportError is a bus transaction that did not complete. Err is the transport's own error,
// untouched.
type TransportError struct {
	Op       string
	Addr     byte
	Register byte
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s register 0x%02x at address 0x%02x: %v", e.Op, e.Register, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func unsupported(d *Descriptor, format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsupported, "%s: %s", d.Name, fmt.Sprintf(format, args...))
}
