package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/vigem/device/dualshock4"
	"github.com/Alia5/vigem/device/xbox360"
)

type Monitor struct {
	Kind  string `arg:"" optional:"" help:"Feedback to watch: x360, ds4 or ds4-raw" enum:"x360,ds4,ds4-raw" default:"x360"`
	Count int    `help:"Exit after this many notifications (0 = until interrupted)" env:"VIGEMCTL_MONITOR_COUNT"`
}

// Run is called by Kong when the monitor command is executed. It plugs a
// pad of the requested kind and prints every piece of feedback the host
// pushes, which is handy for checking that games reach the virtual pad.
func (m *Monitor) Run(logger *slog.Logger, raw *RawTraffic) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(logger, raw)
	if err != nil {
		return err
	}
	defer client.Close()

	switch m.Kind {
	case "ds4":
		pad, err := client.PlugDualShock4(nil)
		if err != nil {
			return err
		}
		if err := pad.WaitReady(); err != nil {
			return err
		}
		logger.Info("Watching DualShock 4 feedback", "serial", pad.Serial())
		values, errs, err := pad.Notifications(ctx)
		if err != nil {
			return err
		}
		return consume(ctx, m.Count, values, errs, func(v dualshock4.OutputState) {
			logger.Info("Feedback", "largeMotor", v.LargeMotor, "smallMotor", v.SmallMotor,
				"lightbar", fmt.Sprintf("#%02X%02X%02X", v.Lightbar.Red, v.Lightbar.Green, v.Lightbar.Blue))
		})
	case "ds4-raw":
		pad, err := client.PlugDualShock4(nil)
		if err != nil {
			return err
		}
		if err := pad.WaitReady(); err != nil {
			return err
		}
		logger.Info("Watching raw DualShock 4 output reports", "serial", pad.Serial())
		values, errs, err := pad.RawOutput(ctx)
		if err != nil {
			return err
		}
		return consume(ctx, m.Count, values, errs, func(buf dualshock4.OutputBuffer) {
			logger.Info("Output report", "id", buf[0], "hex", hex.EncodeToString(buf[:]))
		})
	default:
		pad, err := client.PlugXbox360(nil)
		if err != nil {
			return err
		}
		if err := pad.WaitReady(); err != nil {
			return err
		}
		logger.Info("Watching Xbox 360 feedback", "serial", pad.Serial())
		values, errs, err := pad.Notifications(ctx)
		if err != nil {
			return err
		}
		return consume(ctx, m.Count, values, errs, func(v xbox360.OutputState) {
			logger.Info("Feedback", "largeMotor", v.LargeMotor, "smallMotor", v.SmallMotor, "led", v.LedNumber)
		})
	}
}

// consume drains a notification stream until ctx ends, the stream ends or
// count notifications were seen.
func consume[N any](ctx context.Context, count int, values <-chan N, errs <-chan error, emit func(N)) error {
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			return err
		case v, ok := <-values:
			if !ok {
				if err, ok := <-errs; ok && err != nil {
					return err
				}
				return nil
			}
			emit(v)
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
	}
}
