package vigem

import (
	"errors"
	"sync/atomic"
	"time"
)

// Readiness heuristic timing. Right after a plug the driver floods the
// fresh target with held-back feedback polls; the target is settled once
// that chatter stops. A target that never chatters is ready as soon as the
// first window elapses.
const (
	firstNotification = 500 * time.Millisecond
	quietWindow       = 250 * time.Millisecond
)

// handleState is shared by every clone of one target's handles and doubles
// as the slot's generation marker in the client registry.
type handleState struct {
	refs atomic.Int32
}

// target is the core of a typed handle. Clones share handleState so the
// slot is released exactly once, by the last close.
type target struct {
	client *Client
	serial uint32
	state  *handleState
	closed atomic.Bool
}

// clone returns a new handle to the same target. Cloning a closed handle
// is a bug.
func (t *target) clone() *target {
	t.state.refs.Add(1)
	return &target{client: t.client, serial: t.serial, state: t.state}
}

// close releases this handle. The last clone to close unplugs the target.
// Closing twice is a no-op, as is closing after the client went down (the
// client unplugged everything on its way out).
func (t *target) close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if t.state.refs.Add(-1) > 0 {
		return nil
	}
	err := t.client.release(t.serial, t.state)
	if errors.Is(err, ErrClientClosed) {
		return nil
	}
	return err
}

// unplug removes the target from the bus now, without waiting for other
// clones. Those observe TargetError afterwards and their closes become
// no-ops. The handle itself is spent after this call.
func (t *target) unplug() error {
	err := t.client.release(t.serial, t.state)
	if !t.closed.Swap(true) {
		// Keep the refcount balanced, but never release twice.
		t.state.refs.Add(-1)
	}
	return err
}

// live reports whether this handle can still reach its target: the handle
// is open, the client is up and the slot is still owned by this handle's
// generation (not reused by a later plug).
func (t *target) live() error {
	if t.closed.Load() {
		return &TargetError{Serial: t.serial}
	}
	return t.client.targetAlive(t.serial, t.state)
}

func (t *target) attached() (bool, error) {
	err := t.live()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrClientClosed):
		return false, ErrClientClosed
	default:
		return false, nil
	}
}

// waitReady implements the readiness heuristic over a notification stream:
// every arrival restarts a quietWindow timer and readiness is the first
// window that passes in silence. No arrival within firstNotification also
// counts as ready. An error ends the wait, and a stream that closes without
// one means the target is gone.
func waitReady[N any](serial uint32, values <-chan N, errs <-chan error) error {
	timer := time.NewTimer(firstNotification)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-values:
			if !ok {
				return streamDone(serial, errs)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(quietWindow)
		case <-timer.C:
			return nil
		}
	}
}

// streamDone reports why a notification stream ended: the poll error when
// there is one, otherwise the target is simply gone.
func streamDone(serial uint32, errs <-chan error) error {
	if err, ok := <-errs; ok && err != nil {
		return err
	}
	return &TargetError{Serial: serial}
}
