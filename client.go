// Package vigem is a client for the ViGEm virtual gamepad bus driver. It
// plugs virtual Xbox 360 and DualShock 4 pads into the kernel bus, feeds
// them input reports and streams host feedback (rumble, LEDs, lightbar)
// back to the caller.
package vigem

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/Alia5/vigem/device/dualshock4"
	"github.com/Alia5/vigem/device/xbox360"
	"github.com/Alia5/vigem/internal/bus"
	"github.com/Alia5/vigem/internal/log"
)

// DefaultMaxTargets is how many target slots a Client manages unless
// Config.MaxTargets says otherwise. It matches the driver's default
// device limit.
const DefaultMaxTargets = 16

// Config controls how a Client connects and behaves. The zero value is
// ready to use.
type Config struct {
	// MaxTargets caps how many targets can be plugged at once and bounds
	// the serials offered to the driver (1 through MaxTargets). Zero means
	// DefaultMaxTargets.
	MaxTargets uint32
	// Logger receives client and bus events. Nil means slog.Default().
	Logger *slog.Logger
	// RawLog, when non-nil, receives a timestamped hex dump of every
	// record exchanged with the driver.
	RawLog io.Writer
}

func (c Config) withDefaults() Config {
	if c.MaxTargets == 0 {
		c.MaxTargets = DefaultMaxTargets
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// TargetOptions overrides the USB identity a target reports to the host.
// A zero field keeps the default for the controller kind.
type TargetOptions struct {
	VendorID  uint16
	ProductID uint16
}

func (o *TargetOptions) apply(t *bus.Target) {
	if o == nil {
		return
	}
	if o.VendorID != 0 {
		t.VendorID = o.VendorID
	}
	if o.ProductID != 0 {
		t.ProductID = o.ProductID
	}
}

// targetEntry is one occupied slot in the client's registry. The state
// pointer identifies the generation of handles bound to this slot, so a
// stale handle cannot reach a target that reused its serial.
type targetEntry struct {
	desc  bus.Target
	state *handleState
}

// Client is a session with the bus driver plus the registry of targets it
// plugged. All methods are safe for concurrent use.
type Client struct {
	bus *bus.Bus
	log *slog.Logger

	mu         sync.Mutex
	targets    map[uint32]*targetEntry
	maxTargets uint32
	closed     bool
}

// Connect discovers the bus driver, verifies its protocol version and
// returns a connected Client with default settings.
func Connect() (*Client, error) {
	return ConnectWithConfig(Config{})
}

// ConnectWithConfig is Connect with explicit settings.
func ConnectWithConfig(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	b, err := bus.Connect(cfg.Logger, log.NewRaw(cfg.RawLog))
	if err != nil {
		return nil, fmt.Errorf("connect to bus: %w", err)
	}
	return newClient(b, cfg), nil
}

func newClient(b *bus.Bus, cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		bus:        b,
		log:        cfg.Logger,
		targets:    make(map[uint32]*targetEntry),
		maxTargets: cfg.MaxTargets,
	}
}

// PlugXbox360 plugs a virtual Xbox 360 pad into the lowest free slot.
func (c *Client) PlugXbox360(opts *TargetOptions) (*Xbox360, error) {
	desc := bus.Target{Kind: bus.KindXbox360, VendorID: xbox360.DefaultVID, ProductID: xbox360.DefaultPID}
	opts.apply(&desc)
	t, err := c.plug(desc)
	if err != nil {
		return nil, err
	}
	return &Xbox360{t: t}, nil
}

// PlugDualShock4 plugs a virtual DualShock 4 into the lowest free slot.
func (c *Client) PlugDualShock4(opts *TargetOptions) (*DualShock4, error) {
	desc := bus.Target{Kind: bus.KindDualShock4, VendorID: dualshock4.DefaultVID, ProductID: dualshock4.DefaultPID}
	opts.apply(&desc)
	t, err := c.plug(desc)
	if err != nil {
		return nil, err
	}
	return &DualShock4{t: t}, nil
}

// plug scans for the lowest free serial and plugs desc under it. Scanning
// and plugging happen under the registry lock, so concurrent plugs cannot
// race for a slot. A serial the driver refuses (another client on the
// shared bus may own it) is skipped, not fatal.
func (c *Client) plug(desc bus.Target) (*target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	for serial := uint32(1); serial <= c.maxTargets; serial++ {
		if _, taken := c.targets[serial]; taken {
			continue
		}
		if err := c.bus.Plug(serial, desc); err != nil {
			c.log.Debug("plug attempt failed, trying next slot", "serial", serial, "error", err)
			continue
		}
		state := &handleState{}
		state.refs.Store(1)
		c.targets[serial] = &targetEntry{desc: desc, state: state}
		return &target{client: c, serial: serial, state: state}, nil
	}
	return nil, ErrNoFreeSlot
}

// release frees the slot held by the given handle generation and unplugs
// the device. Releasing a slot that is already free, or that a newer
// target occupies, is a no-op.
func (c *Client) release(serial uint32, state *handleState) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	e, ok := c.targets[serial]
	if !ok || e.state != state {
		c.mu.Unlock()
		return nil
	}
	delete(c.targets, serial)
	c.mu.Unlock()
	return c.bus.Unplug(serial)
}

// targetAlive reports whether the given handle generation still owns its
// slot.
func (c *Client) targetAlive(serial uint32, state *handleState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	e, ok := c.targets[serial]
	if !ok || e.state != state {
		return &TargetError{Serial: serial}
	}
	return nil
}

// Close unplugs every remaining target and disconnects from the bus.
// Individual unplug failures are logged, the teardown continues past them.
// Closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	serials := make([]uint32, 0, len(c.targets))
	for serial := range c.targets {
		serials = append(serials, serial)
	}
	clear(c.targets)
	c.mu.Unlock()

	slices.Sort(serials)
	for _, serial := range serials {
		if err := c.bus.Unplug(serial); err != nil {
			c.log.Warn("unplug during close failed", "serial", serial, "error", err)
		}
	}
	return c.bus.Close()
}
