//go:build !windows

package bus

import (
	"log/slog"

	"github.com/Alia5/vigem/internal/log"
)

// Connect always fails off Windows. The bus is a Windows kernel driver, so
// there is nothing to enumerate on other platforms.
func Connect(logger *slog.Logger, raw log.RawLogger) (*Bus, error) {
	return nil, ErrBusNotFound
}
