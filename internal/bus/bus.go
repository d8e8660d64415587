package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Alia5/vigem/device/dualshock4"
	"github.com/Alia5/vigem/device/xbox360"
	"github.com/Alia5/vigem/internal/log"
)

var (
	// ErrBusNotFound means no present device interface answered the
	// version probe.
	ErrBusNotFound = errors.New("bus device not found, is the driver installed and running?")
	// ErrVersionMismatch means a bus device rejected the protocol version
	// this client speaks.
	ErrVersionMismatch = errors.New("bus rejected the protocol version")
)

// notifyBuffer is the capacity of a notification channel. Polls are
// resubmitted one at a time, so a small buffer only smooths bursts.
const notifyBuffer = 16

// Device is one open handle to the bus device node. Submit starts a
// control request without waiting for the driver to complete it, so many
// requests can be in flight on one handle.
type Device interface {
	// Submit starts the control request identified by code. req is the
	// request record. resp, when non-nil, receives the record the driver
	// copies back and may alias req.
	Submit(code uint32, req, resp []byte) (Call, error)
	Close() error
}

// Call is one in-flight control request.
type Call interface {
	// Wait blocks until the driver completes the request and returns the
	// number of response bytes.
	Wait() (uint32, error)
	// Close releases the request's completion resources. Calling it more
	// than once is harmless.
	Close()
}

// Bus is a connected session with the bus driver. All methods are safe for
// concurrent use.
type Bus struct {
	dev Device
	log *slog.Logger
	raw log.RawLogger
}

// New wraps an open bus device. The raw logger receives a hex dump of
// every record exchanged and may be log.NewRaw(nil) to discard them.
func New(dev Device, logger *slog.Logger, raw log.RawLogger) *Bus {
	return &Bus{dev: dev, log: logger, raw: raw}
}

// Close releases the device handle. In-flight requests fail once the
// handle is gone.
func (b *Bus) Close() error {
	return b.dev.Close()
}

func (b *Bus) submit(code uint32, req, resp []byte) (Call, error) {
	b.raw.Log(true, req)
	return b.dev.Submit(code, req, resp)
}

func (b *Bus) await(call Call, resp []byte) (uint32, error) {
	defer call.Close()
	n, err := call.Wait()
	if err != nil {
		return 0, err
	}
	if resp != nil {
		b.raw.Log(false, resp[:min(int(n), len(resp))])
	}
	return n, nil
}

// control runs one request to completion.
func (b *Bus) control(code uint32, req, resp []byte) (uint32, error) {
	call, err := b.submit(code, req, resp)
	if err != nil {
		return 0, err
	}
	return b.await(call, resp)
}

// CheckVersion asks the driver whether it speaks this client's protocol
// version. The driver fails the request on a mismatch, so any error here
// reports one.
func (b *Bus) CheckVersion() error {
	if _, err := b.control(CodeCheckVersion, encodeCheckVersion(protocolVersion), nil); err != nil {
		return fmt.Errorf("%w %#04x: %v", ErrVersionMismatch, protocolVersion, err)
	}
	return nil
}

// Plug asks the driver to create a virtual device under the given serial.
// The driver fails the request when the serial is already taken.
func (b *Bus) Plug(serial uint32, t Target) error {
	if _, err := b.control(CodePlugTarget, encodePlugTarget(serial, t), nil); err != nil {
		return fmt.Errorf("plug %s target %d: %w", t.Kind, serial, err)
	}
	// The driver's explicit ready wait is known to misreport, so its
	// outcome is ignored. Callers that need readiness use the notification
	// silence heuristic instead.
	if _, err := b.control(CodeWaitDeviceReady, encodeWaitDeviceReady(serial), nil); err != nil {
		b.log.Debug("wait-device-ready failed, ignoring", "serial", serial, "error", err)
	}
	b.log.Debug("plugged target", "serial", serial, "kind", t.Kind.String(),
		"vid", fmt.Sprintf("%#04x", t.VendorID), "pid", fmt.Sprintf("%#04x", t.ProductID))
	return nil
}

// Unplug removes the virtual device under the given serial.
func (b *Bus) Unplug(serial uint32) error {
	if _, err := b.control(CodeUnplugTarget, encodeUnplugTarget(serial), nil); err != nil {
		return fmt.Errorf("unplug target %d: %w", serial, err)
	}
	b.log.Debug("unplugged target", "serial", serial)
	return nil
}

// UpdateXbox360 submits an input report for an Xbox 360 target.
func (b *Bus) UpdateXbox360(serial uint32, r *xbox360.Report) error {
	req, err := encodeXusbSubmitReport(serial, r)
	if err != nil {
		return err
	}
	if _, err := b.control(CodeXusbSubmitReport, req, nil); err != nil {
		return fmt.Errorf("submit report for target %d: %w", serial, err)
	}
	return nil
}

// UpdateDualShock4 submits a basic input report for a DualShock 4 target.
func (b *Bus) UpdateDualShock4(serial uint32, r *dualshock4.Report) error {
	req, err := encodeDS4SubmitReport(serial, r)
	if err != nil {
		return err
	}
	if _, err := b.control(CodeDS4SubmitReport, req, nil); err != nil {
		return fmt.Errorf("submit report for target %d: %w", serial, err)
	}
	return nil
}

// UpdateDualShock4Ex submits an extended input report for a DualShock 4
// target. The driver tells the flavors apart by the record's size field.
func (b *Bus) UpdateDualShock4Ex(serial uint32, r *dualshock4.ReportEx) error {
	req, err := encodeDS4SubmitReportEx(serial, r)
	if err != nil {
		return err
	}
	if _, err := b.control(CodeDS4SubmitReport, req, nil); err != nil {
		return fmt.Errorf("submit extended report for target %d: %w", serial, err)
	}
	return nil
}

// Xbox360UserIndex reads the XInput player slot the system assigned to an
// Xbox 360 target. Note that LED notifications are the more reliable
// source for this value.
func (b *Bus) Xbox360UserIndex(serial uint32) (uint32, error) {
	rec := encodeXusbGetUserIndex(serial)
	n, err := b.control(CodeXusbGetUserIndex, rec, rec)
	if err != nil {
		return 0, fmt.Errorf("get user index for target %d: %w", serial, err)
	}
	idx, err := decodeXusbUserIndex(rec[:min(int(n), len(rec))])
	if err != nil {
		return 0, fmt.Errorf("get user index for target %d: %w", serial, err)
	}
	return idx, nil
}

// ListenXbox360 streams rumble and LED feedback for an Xbox 360 target.
func (b *Bus) ListenXbox360(ctx context.Context, serial uint32) (<-chan xbox360.OutputState, <-chan error, error) {
	return listen(ctx, b, xusbNotifier{}, serial)
}

// ListenDualShock4 streams decoded rumble and lightbar feedback for a
// DualShock 4 target.
func (b *Bus) ListenDualShock4(ctx context.Context, serial uint32) (<-chan dualshock4.OutputState, <-chan error, error) {
	return listen(ctx, b, ds4Notifier{}, serial)
}

// ListenDualShock4Output streams raw USB output reports for a DualShock 4
// target.
func (b *Bus) ListenDualShock4Output(ctx context.Context, serial uint32) (<-chan dualshock4.OutputBuffer, <-chan error, error) {
	return listen(ctx, b, ds4OutputNotifier{}, serial)
}

// listen starts a poll worker for one target. The driver holds each poll
// until host feedback arrives, the worker decodes it, delivers it and
// resubmits. Both channels close when the worker stops: after a failed
// poll (error delivered first) or after ctx is done. Cancellation is
// cooperative, a worker blocked in a poll exits once that poll completes.
func listen[N any](ctx context.Context, b *Bus, n notifier[N], serial uint32) (<-chan N, <-chan error, error) {
	rec := n.request(serial)
	// Submit the first poll synchronously so a bad target or a closed
	// device fails the subscription instead of the stream.
	call, err := b.submit(n.code(), rec, rec)
	if err != nil {
		return nil, nil, fmt.Errorf("start notification poll for target %d: %w", serial, err)
	}

	out := make(chan N, notifyBuffer)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		for {
			got, err := b.await(call, rec)
			if err != nil {
				errs <- fmt.Errorf("notification poll for target %d: %w", serial, err)
				return
			}
			v, err := n.decode(rec[:min(int(got), len(rec))])
			if err != nil {
				errs <- fmt.Errorf("notification poll for target %d: %w", serial, err)
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				return
			}
			call, err = b.submit(n.code(), rec, rec)
			if err != nil {
				errs <- fmt.Errorf("notification poll for target %d: %w", serial, err)
				return
			}
		}
	}()
	return out, errs, nil
}
