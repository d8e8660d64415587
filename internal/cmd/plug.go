package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type Plug struct {
	Kind   string `arg:"" optional:"" help:"Controller kind: x360 or ds4" enum:"x360,ds4" default:"x360"`
	Count  int    `help:"How many pads to plug" default:"1" env:"VIGEMCTL_PLUG_COUNT"`
	VID    string `help:"Override the USB vendor id (hex, e.g. 045E)" env:"VIGEMCTL_PLUG_VID"`
	PID    string `help:"Override the USB product id (hex, e.g. 028E)" env:"VIGEMCTL_PLUG_PID"`
	NoWait bool   `help:"Do not wait for pads to settle after plugging"`
}

// Run is called by Kong when the plug command is executed.
func (p *Plug) Run(logger *slog.Logger, raw *RawTraffic) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := targetOptions(p.VID, p.PID)
	if err != nil {
		return err
	}

	client, err := connect(logger, raw)
	if err != nil {
		return err
	}
	defer client.Close()

	for i := 0; i < p.Count; i++ {
		switch p.Kind {
		case "ds4":
			pad, err := client.PlugDualShock4(opts)
			if err != nil {
				return err
			}
			if !p.NoWait {
				if err := pad.WaitReady(); err != nil {
					return err
				}
			}
			logger.Info("Plugged DualShock 4", "serial", pad.Serial())
		default:
			pad, err := client.PlugXbox360(opts)
			if err != nil {
				return err
			}
			if !p.NoWait {
				if err := pad.WaitReady(); err != nil {
					return err
				}
				if idx, err := pad.UserIndex(); err == nil {
					logger.Info("Plugged Xbox 360 pad", "serial", pad.Serial(), "userIndex", idx)
					continue
				}
			}
			logger.Info("Plugged Xbox 360 pad", "serial", pad.Serial())
		}
	}

	logger.Info("Pads are up, press Ctrl+C to unplug and exit")
	<-ctx.Done()
	logger.Info("Unplugging")
	return nil
}
