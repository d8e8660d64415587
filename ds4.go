package vigem

import (
	"context"

	"github.com/Alia5/vigem/device/dualshock4"
)

// DualShock4 is a handle to one plugged virtual DualShock 4. Handles may
// be cloned and used from any goroutine; the pad stays plugged until the
// last clone is closed, the target is unplugged or the client shuts down.
type DualShock4 struct {
	t *target
}

// Serial returns the bus slot this pad occupies.
func (d *DualShock4) Serial() uint32 {
	return d.t.serial
}

// Clone returns another handle to the same pad.
func (d *DualShock4) Clone() *DualShock4 {
	return &DualShock4{t: d.t.clone()}
}

// Close releases this handle. The last handle to close unplugs the pad.
func (d *DualShock4) Close() error {
	return d.t.close()
}

// Unplug removes the pad from the bus now, regardless of other clones.
func (d *DualShock4) Unplug() error {
	return d.t.unplug()
}

// Attached reports whether the pad is still plugged in through this handle.
func (d *DualShock4) Attached() (bool, error) {
	return d.t.attached()
}

// Update submits a basic input report: sticks, buttons, triggers.
func (d *DualShock4) Update(r *dualshock4.Report) error {
	if err := d.t.live(); err != nil {
		return err
	}
	return d.t.client.bus.UpdateDualShock4(d.t.serial, r)
}

// UpdateEx submits an extended input report, adding timestamp, battery,
// motion sensors and touchpad state.
func (d *DualShock4) UpdateEx(r *dualshock4.ReportEx) error {
	if err := d.t.live(); err != nil {
		return err
	}
	return d.t.client.bus.UpdateDualShock4Ex(d.t.serial, r)
}

// Notifications streams decoded rumble and lightbar feedback from the
// host. Both returned channels close when the stream ends: after a poll
// failure (the error arrives first) or once ctx is done. Cancellation is
// cooperative, a stream blocked in a quiet poll ends at the next
// notification.
func (d *DualShock4) Notifications(ctx context.Context) (<-chan dualshock4.OutputState, <-chan error, error) {
	if err := d.t.live(); err != nil {
		return nil, nil, err
	}
	return d.t.client.bus.ListenDualShock4(ctx, d.t.serial)
}

// RawOutput streams the host's USB output reports without decoding them.
// Most callers want Notifications instead; this exists for callers that
// need fields the decoded form drops, like audio volume.
func (d *DualShock4) RawOutput(ctx context.Context) (<-chan dualshock4.OutputBuffer, <-chan error, error) {
	if err := d.t.live(); err != nil {
		return nil, nil, err
	}
	return d.t.client.bus.ListenDualShock4Output(ctx, d.t.serial)
}

// WaitReady blocks until the pad has settled on the bus, using the
// notification silence heuristic. Plugging returns before the system has
// fully enumerated the new device.
func (d *DualShock4) WaitReady() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	values, errs, err := d.Notifications(ctx)
	if err != nil {
		return err
	}
	return waitReady(d.t.serial, values, errs)
}
