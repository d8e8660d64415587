package vigem

import (
	"context"

	"github.com/Alia5/vigem/device/xbox360"
)

// Xbox360 is a handle to one plugged virtual Xbox 360 pad. Handles may be
// cloned and used from any goroutine; the pad stays plugged until the last
// clone is closed, the target is unplugged or the client shuts down.
type Xbox360 struct {
	t *target
}

// Serial returns the bus slot this pad occupies.
func (x *Xbox360) Serial() uint32 {
	return x.t.serial
}

// Clone returns another handle to the same pad.
func (x *Xbox360) Clone() *Xbox360 {
	return &Xbox360{t: x.t.clone()}
}

// Close releases this handle. The last handle to close unplugs the pad.
func (x *Xbox360) Close() error {
	return x.t.close()
}

// Unplug removes the pad from the bus now, regardless of other clones.
func (x *Xbox360) Unplug() error {
	return x.t.unplug()
}

// Attached reports whether the pad is still plugged in through this handle.
func (x *Xbox360) Attached() (bool, error) {
	return x.t.attached()
}

// Update submits a full input report, replacing the pad's previous state.
func (x *Xbox360) Update(r *xbox360.Report) error {
	if err := x.t.live(); err != nil {
		return err
	}
	return x.t.client.bus.UpdateXbox360(x.t.serial, r)
}

// UserIndex asks the driver for the XInput player slot assigned to this
// pad. The LED number carried by notifications is the more reliable source
// for the same information.
func (x *Xbox360) UserIndex() (uint32, error) {
	if err := x.t.live(); err != nil {
		return 0, err
	}
	return x.t.client.bus.Xbox360UserIndex(x.t.serial)
}

// Notifications streams rumble and LED feedback from the host. Both
// returned channels close when the stream ends: after a poll failure (the
// error arrives first) or once ctx is done. Cancellation is cooperative, a
// stream blocked in a quiet poll ends at the next notification.
func (x *Xbox360) Notifications(ctx context.Context) (<-chan xbox360.OutputState, <-chan error, error) {
	if err := x.t.live(); err != nil {
		return nil, nil, err
	}
	return x.t.client.bus.ListenXbox360(ctx, x.t.serial)
}

// WaitReady blocks until the pad has settled on the bus, using the
// notification silence heuristic. Plugging returns before the system has
// fully enumerated the new device; call this when the next step needs the
// pad visible, for example before reading the user index.
func (x *Xbox360) WaitReady() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	values, errs, err := x.Notifications(ctx)
	if err != nil {
		return err
	}
	return waitReady(x.t.serial, values, errs)
}
