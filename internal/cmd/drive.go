package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/vigem/device/dualshock4"
	"github.com/Alia5/vigem/device/xbox360"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

type Drive struct {
	Kind string        `arg:"" optional:"" help:"Controller kind: x360 or ds4" enum:"x360,ds4" default:"x360"`
	Rate time.Duration `help:"Input report rate" default:"16ms" env:"VIGEMCTL_DRIVE_RATE"`
}

// How long a key press keeps its input active. The terminal delivers no
// key-up events, so presses decay into pulses.
const pulse = 150 * time.Millisecond

type action int

const (
	actStickUp action = iota
	actStickDown
	actStickLeft
	actStickRight
	actDPadUp
	actDPadDown
	actDPadLeft
	actDPadRight
	actA
	actB
	actX
	actY
	actLB
	actRB
	actLT
	actRT
	actStart
)

var keyActions = map[byte]action{
	'w': actStickUp, 's': actStickDown, 'a': actStickLeft, 'd': actStickRight,
	' ': actA, 'b': actB, 'x': actX, 'y': actY,
	'1': actLB, '2': actRB,
	't': actLT, 'g': actRT,
	'\r': actStart,
}

var errQuit = errors.New("quit")

// Run is called by Kong when the drive command is executed. It turns the
// terminal into a crude gamepad: WASD moves the left stick, arrows the
// D-Pad, space/b/x/y press the face buttons, 1/2 the shoulders, t/g the
// triggers, enter Start. q or Ctrl+C quits.
func (d *Drive) Run(logger *slog.Logger, raw *RawTraffic) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(logger, raw)
	if err != nil {
		return err
	}
	defer client.Close()

	var update func(held map[action]bool) error
	var watch func(g *errgroup.Group, ctx context.Context) error

	switch d.Kind {
	case "ds4":
		pad, err := client.PlugDualShock4(nil)
		if err != nil {
			return err
		}
		if err := pad.WaitReady(); err != nil {
			return err
		}
		logger.Info("Driving DualShock 4", "serial", pad.Serial())
		update = func(held map[action]bool) error { return pad.Update(ds4Report(held)) }
		watch = func(g *errgroup.Group, ctx context.Context) error {
			values, errs, err := pad.Notifications(ctx)
			if err != nil {
				return err
			}
			g.Go(func() error {
				return consume(ctx, 0, values, errs, func(v dualshock4.OutputState) {
					logger.Info("Rumble", "large", v.LargeMotor, "small", v.SmallMotor)
				})
			})
			return nil
		}
	default:
		pad, err := client.PlugXbox360(nil)
		if err != nil {
			return err
		}
		if err := pad.WaitReady(); err != nil {
			return err
		}
		logger.Info("Driving Xbox 360 pad", "serial", pad.Serial())
		update = func(held map[action]bool) error { return pad.Update(x360Report(held)) }
		watch = func(g *errgroup.Group, ctx context.Context) error {
			values, errs, err := pad.Notifications(ctx)
			if err != nil {
				return err
			}
			g.Go(func() error {
				return consume(ctx, 0, values, errs, func(v xbox360.OutputState) {
					logger.Info("Rumble", "large", v.LargeMotor, "small", v.SmallMotor)
				})
			})
			return nil
		}
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("drive needs an interactive terminal: %w", err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	logger.Info("WASD stick, arrows D-Pad, space/b/x/y buttons, 1/2 shoulders, t/g triggers, enter Start, q quits")

	g, ctx := errgroup.WithContext(ctx)
	if err := watch(g, ctx); err != nil {
		return err
	}

	// The blocking stdin read lives outside the group so a group failure
	// does not wait on the next keypress. The goroutine dies with the
	// process.
	keys := make(chan byte, 8)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()
	g.Go(func() error {
		defer update(nil) // leave the pad neutral
		ticker := time.NewTicker(d.Rate)
		defer ticker.Stop()
		held := make(map[action]time.Time)
		esc := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case key, ok := <-keys:
				if !ok {
					return errQuit
				}
				switch {
				case key == 'q' || key == 0x03: // Ctrl+C arrives as a byte in raw mode
					return errQuit
				case key == 0x1B:
					esc = 1
				case esc == 1 && key == '[':
					esc = 2
				case esc == 2:
					esc = 0
					switch key {
					case 'A':
						held[actDPadUp] = time.Now().Add(pulse)
					case 'B':
						held[actDPadDown] = time.Now().Add(pulse)
					case 'C':
						held[actDPadRight] = time.Now().Add(pulse)
					case 'D':
						held[actDPadLeft] = time.Now().Add(pulse)
					}
				default:
					esc = 0
					if act, ok := keyActions[key]; ok {
						held[act] = time.Now().Add(pulse)
					}
				}
			case <-ticker.C:
				active := make(map[action]bool, len(held))
				now := time.Now()
				for act, until := range held {
					if now.Before(until) {
						active[act] = true
					} else {
						delete(held, act)
					}
				}
				if err := update(active); err != nil {
					return err
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

func x360Report(held map[action]bool) *xbox360.Report {
	r := &xbox360.Report{}
	if held[actStickUp] {
		r.ThumbLY = 32767
	}
	if held[actStickDown] {
		r.ThumbLY = -32768
	}
	if held[actStickLeft] {
		r.ThumbLX = -32768
	}
	if held[actStickRight] {
		r.ThumbLX = 32767
	}
	if held[actDPadUp] {
		r.Buttons |= xbox360.ButtonDPadUp
	}
	if held[actDPadDown] {
		r.Buttons |= xbox360.ButtonDPadDown
	}
	if held[actDPadLeft] {
		r.Buttons |= xbox360.ButtonDPadLeft
	}
	if held[actDPadRight] {
		r.Buttons |= xbox360.ButtonDPadRight
	}
	if held[actA] {
		r.Buttons |= xbox360.ButtonA
	}
	if held[actB] {
		r.Buttons |= xbox360.ButtonB
	}
	if held[actX] {
		r.Buttons |= xbox360.ButtonX
	}
	if held[actY] {
		r.Buttons |= xbox360.ButtonY
	}
	if held[actLB] {
		r.Buttons |= xbox360.ButtonLShoulder
	}
	if held[actRB] {
		r.Buttons |= xbox360.ButtonRShoulder
	}
	if held[actStart] {
		r.Buttons |= xbox360.ButtonStart
	}
	if held[actLT] {
		r.LeftTrigger = 255
	}
	if held[actRT] {
		r.RightTrigger = 255
	}
	return r
}

func ds4Report(held map[action]bool) *dualshock4.Report {
	r := dualshock4.NewReport()
	if held[actStickUp] {
		r.ThumbLY = 0 // DS4 sticks grow downward
	}
	if held[actStickDown] {
		r.ThumbLY = 255
	}
	if held[actStickLeft] {
		r.ThumbLX = 0
	}
	if held[actStickRight] {
		r.ThumbLX = 255
	}
	r.SetDPad(dpadFrom(held))
	if held[actA] {
		r.Buttons |= dualshock4.ButtonCross
	}
	if held[actB] {
		r.Buttons |= dualshock4.ButtonCircle
	}
	if held[actX] {
		r.Buttons |= dualshock4.ButtonSquare
	}
	if held[actY] {
		r.Buttons |= dualshock4.ButtonTriangle
	}
	if held[actLB] {
		r.Buttons |= dualshock4.ButtonL1
	}
	if held[actRB] {
		r.Buttons |= dualshock4.ButtonR1
	}
	if held[actStart] {
		r.Buttons |= dualshock4.ButtonOptions
	}
	if held[actLT] {
		r.Buttons |= dualshock4.ButtonL2
		r.TriggerL = 255
	}
	if held[actRT] {
		r.Buttons |= dualshock4.ButtonR2
		r.TriggerR = 255
	}
	return r
}

func dpadFrom(held map[action]bool) dualshock4.DPad {
	up, down := held[actDPadUp], held[actDPadDown]
	left, right := held[actDPadLeft], held[actDPadRight]
	switch {
	case up && right:
		return dualshock4.DPadNorthEast
	case up && left:
		return dualshock4.DPadNorthWest
	case down && right:
		return dualshock4.DPadSouthEast
	case down && left:
		return dualshock4.DPadSouthWest
	case up:
		return dualshock4.DPadNorth
	case down:
		return dualshock4.DPadSouth
	case left:
		return dualshock4.DPadWest
	case right:
		return dualshock4.DPadEast
	default:
		return dualshock4.DPadNeutral
	}
}
