//go:build linux

package device

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

var (
	ErrUnavailable = errors.New("watchdog device unavailable")
	ErrDisarmed    = errors.New("watchdog device already disarmed")
)

const (
	feedByte = "1"
	// Magic character: with CONFIG_WATCHDOG_NOWAYOUT off, the driver
	// disables the timer when it sees 'V' before the handle closes.
	disarmByte = "V"
)

// Device owns the open handle to a kernel watchdog node. It must only be
// used from the goroutine that runs the feed loop; there is no internal
// locking.
type Device struct {
	path     string
	file     *os.File
	disarmed bool
}

// Open opens the watchdog node write-only. Opening arms the timer on most
// drivers, so the caller has to start feeding promptly.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}
	return &Device{path: path, file: f}, nil
}

func (d *Device) Path() string { return d.path }

// Feed writes one keep-alive byte, resetting the driver's countdown. The
// handle is an unbuffered *os.File, so the byte reaches the driver before
// Feed returns.
func (d *Device) Feed() error {
	if d.disarmed {
		return ErrDisarmed
	}
	if _, err := d.file.WriteString(feedByte); err != nil {
		return fmt.Errorf("feed %s: %w", d.path, err)
	}
	return nil
}

// Disarm writes the magic stop byte and closes the handle, so a
// deliberately stopped daemon does not reboot the host. At most one call
// succeeds; the device can never be fed afterward.
func (d *Device) Disarm() error {
	if d.disarmed {
		return ErrDisarmed
	}
	d.disarmed = true
	if _, err := d.file.WriteString(disarmByte); err != nil {
		_ = d.file.Close()
		return fmt.Errorf("disarm %s: %w", d.path, err)
	}
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("disarm %s: close: %w", d.path, err)
	}
	return nil
}

// Timeout reads the driver's reboot timeout via WDIOC_GETTIMEOUT. Not every
// driver implements the ioctl; callers treat the error as informational.
func (d *Device) Timeout() (time.Duration, error) {
	if d.disarmed {
		return 0, ErrDisarmed
	}
	secs, err := unix.IoctlGetInt(int(d.file.Fd()), unix.WDIOC_GETTIMEOUT)
	if err != nil {
		return 0, fmt.Errorf("WDIOC_GETTIMEOUT on %s: %w", d.path, err)
	}
	return time.Duration(secs) * time.Second, nil
}

// SetTimeout programs the driver's reboot timeout via WDIOC_SETTIMEOUT.
func (d *Device) SetTimeout(timeout time.Duration) error {
	if d.disarmed {
		return ErrDisarmed
	}
	secs := int(timeout / time.Second)
	if err := unix.IoctlSetPointerInt(int(d.file.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		return fmt.Errorf("WDIOC_SETTIMEOUT on %s: %w", d.path, err)
	}
	return nil
}
