// Package cmd implements the vigemctl commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Alia5/vigem"
)

// CLI is the vigemctl command tree.
type CLI struct {
	Log struct {
		Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"VIGEMCTL_LOG_LEVEL"`
		File    string `help:"Write logs to this file instead of the console" env:"VIGEMCTL_LOG_FILE"`
		RawFile string `help:"Write a hex dump of bus traffic to this file" env:"VIGEMCTL_LOG_RAW_FILE"`
	} `embed:"" prefix:"log."`
	Config string `help:"Path to a config file (JSON, YAML or TOML)" type:"path"`

	Plug      Plug          `cmd:"" help:"Plug virtual pads and hold them until interrupted"`
	Drive     Drive         `cmd:"" help:"Drive a virtual pad from the keyboard"`
	Monitor   Monitor       `cmd:"" help:"Print host feedback (rumble, LEDs, lightbar) for a virtual pad"`
	ConfigCmd ConfigCommand `cmd:"" name:"config" help:"Manage configuration files"`
}

// RawTraffic carries the destination main resolved for wire hex dumps.
// Writer is nil when raw logging is off.
type RawTraffic struct {
	Writer io.Writer
}

func connect(logger *slog.Logger, raw *RawTraffic) (*vigem.Client, error) {
	return vigem.ConnectWithConfig(vigem.Config{Logger: logger, RawLog: raw.Writer})
}

// parseUSBID parses a 16-bit USB vendor or product id like "045E" or
// "0x045E".
func parseUSBID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid USB id %q: %w", s, err)
	}
	return uint16(v), nil
}

// targetOptions builds plug options from optional hex id overrides.
func targetOptions(vid, pid string) (*vigem.TargetOptions, error) {
	opts := &vigem.TargetOptions{}
	if vid != "" {
		v, err := parseUSBID(vid)
		if err != nil {
			return nil, err
		}
		opts.VendorID = v
	}
	if pid != "" {
		p, err := parseUSBID(pid)
		if err != nil {
			return nil, err
		}
		opts.ProductID = p
	}
	return opts, nil
}
