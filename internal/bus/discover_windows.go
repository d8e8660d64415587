//go:build windows

package bus

import (
	"fmt"
	"log/slog"
	"syscall"
	"unsafe"

	"github.com/Alia5/vigem/internal/log"
	"golang.org/x/sys/windows"
)

var (
	setupapi                             = windows.NewLazySystemDLL("setupapi.dll")
	procSetupDiGetClassDevsW             = setupapi.NewProc("SetupDiGetClassDevsW")
	procSetupDiEnumDeviceInterfaces      = setupapi.NewProc("SetupDiEnumDeviceInterfaces")
	procSetupDiGetDeviceInterfaceDetailW = setupapi.NewProc("SetupDiGetDeviceInterfaceDetailW")
	procSetupDiDestroyDeviceInfoList     = setupapi.NewProc("SetupDiDestroyDeviceInfoList")
)

const (
	DIGCF_PRESENT         = 0x00000002
	DIGCF_DEVICEINTERFACE = 0x00000010
)

type SP_DEVICE_INTERFACE_DATA struct {
	CbSize             uint32
	InterfaceClassGuid windows.GUID
	Flags              uint32
	Reserved           uintptr
}

type SP_DEVICE_INTERFACE_DETAIL_DATA struct {
	CbSize     uint32
	DevicePath [1]uint16
}

// Device interface GUID the bus driver registers for its control device.
var busGUID = windows.GUID{
	Data1: 0x96E42B22,
	Data2: 0xF5E9,
	Data3: 0x42F8,
	Data4: [8]byte{0xB0, 0x43, 0xED, 0x0F, 0x93, 0x2F, 0x01, 0x4F},
}

// Connect finds the bus driver's control device and opens a session with
// it. Every present device interface with the bus GUID is tried in
// enumeration order; the first one that opens and passes the version check
// wins. Candidates that fail either step are skipped, old driver versions
// keep registering the GUID.
func Connect(logger *slog.Logger, raw log.RawLogger) (*Bus, error) {
	paths, err := deviceInterfacePaths(&busGUID)
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		dev, err := openDevice(path)
		if err != nil {
			logger.Debug("skipping bus candidate", "path", path, "error", err)
			continue
		}
		b := New(dev, logger, raw)
		if err := b.CheckVersion(); err != nil {
			logger.Debug("bus candidate rejected", "path", path, "error", err)
			_ = dev.Close()
			continue
		}
		logger.Debug("connected to bus", "path", path)
		return b, nil
	}
	return nil, ErrBusNotFound
}

// deviceInterfacePaths returns the device path of every present interface
// registered under the given GUID.
func deviceInterfacePaths(guid *windows.GUID) ([]string, error) {
	r0, _, e1 := syscall.SyscallN(procSetupDiGetClassDevsW.Addr(),
		uintptr(unsafe.Pointer(guid)),
		0,
		0,
		uintptr(DIGCF_PRESENT|DIGCF_DEVICEINTERFACE))

	devInfo := windows.Handle(r0)
	if devInfo == windows.InvalidHandle {
		if e1 != 0 {
			return nil, fmt.Errorf("Discovery: SetupDiGetClassDevsW failed: %w", e1)
		}
		return nil, fmt.Errorf("Discovery: SetupDiGetClassDevsW failed with invalid handle")
	}
	defer func() {
		syscall.SyscallN(procSetupDiDestroyDeviceInfoList.Addr(), uintptr(devInfo))
	}()

	var paths []string
	for index := uint32(0); ; index++ {
		var interfaceData SP_DEVICE_INTERFACE_DATA
		interfaceData.CbSize = uint32(unsafe.Sizeof(interfaceData))

		r1, _, e2 := syscall.SyscallN(procSetupDiEnumDeviceInterfaces.Addr(),
			uintptr(devInfo),
			0,
			uintptr(unsafe.Pointer(guid)),
			uintptr(index),
			uintptr(unsafe.Pointer(&interfaceData)))
		if r1 == 0 {
			if e2 == windows.ERROR_NO_MORE_ITEMS {
				break
			}
			if e2 != 0 {
				return nil, fmt.Errorf("Discovery: SetupDiEnumDeviceInterfaces failed: %w", e2)
			}
			return nil, fmt.Errorf("Discovery: SetupDiEnumDeviceInterfaces failed")
		}

		path, err := deviceInterfacePath(devInfo, &interfaceData)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func deviceInterfacePath(devInfo windows.Handle, interfaceData *SP_DEVICE_INTERFACE_DATA) (string, error) {
	var requiredSize uint32
	syscall.SyscallN(procSetupDiGetDeviceInterfaceDetailW.Addr(),
		uintptr(devInfo),
		uintptr(unsafe.Pointer(interfaceData)),
		0,
		0,
		uintptr(unsafe.Pointer(&requiredSize)),
		0)

	detailData := make([]byte, requiredSize)
	detailHeader := (*SP_DEVICE_INTERFACE_DETAIL_DATA)(unsafe.Pointer(&detailData[0]))
	detailHeader.CbSize = uint32(unsafe.Sizeof(SP_DEVICE_INTERFACE_DETAIL_DATA{}))

	r0, _, e1 := syscall.SyscallN(procSetupDiGetDeviceInterfaceDetailW.Addr(),
		uintptr(devInfo),
		uintptr(unsafe.Pointer(interfaceData)),
		uintptr(unsafe.Pointer(detailHeader)),
		uintptr(requiredSize),
		0,
		0)
	if r0 == 0 {
		if e1 != 0 {
			return "", fmt.Errorf("Discovery: SetupDiGetDeviceInterfaceDetailW failed: %w", e1)
		}
		return "", fmt.Errorf("Discovery: SetupDiGetDeviceInterfaceDetailW failed")
	}

	return windows.UTF16PtrToString(&detailHeader.DevicePath[0]), nil
}
