package vigem

import (
	"errors"
	"fmt"

	"github.com/Alia5/vigem/internal/bus"
)

// Connection errors surfaced by Connect. Both are fatal, nothing was
// opened.
var (
	// ErrBusNotFound means no present device interface answered the
	// version probe. The driver is missing, stopped or too old.
	ErrBusNotFound = bus.ErrBusNotFound
	// ErrVersionMismatch means a bus device was found but rejected the
	// protocol version this client speaks.
	ErrVersionMismatch = bus.ErrVersionMismatch
)

var (
	// ErrNoFreeSlot means every target slot between 1 and MaxTargets is
	// occupied. Unplug a target or raise Config.MaxTargets.
	ErrNoFreeSlot = errors.New("no free target slot")
	// ErrClientClosed means the Client was closed before the operation.
	ErrClientClosed = errors.New("client is closed")
)

// TargetError reports an operation against a target that is no longer
// reachable through the handle: it was unplugged, its last handle was
// closed, or its slot has since been reused by a newer target.
type TargetError struct {
	Serial uint32
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %d is no longer plugged in", e.Serial)
}
