package escpos

import (
	"bytes"
	"fmt"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// LPIOC_GET_DEVICE_ID(1024) in the asm-generic ioctl layout.
const lpiocGetDeviceID = 2<<30 | 1024<<16 | 'P'<<8 | 1

// lineDevices lists usblp device nodes that answer the IEEE 1284 device ID
// request, which rules out stale nodes with nothing attached.
func lineDevices() []Detected {
	paths, _ := filepath.Glob("/dev/usb/lp[0-9]*")

	var detected []Detected
	for _, path := range paths {
		id, err := readDeviceID(path)
		if err != nil {
			continue
		}

		description := "Line printer " + filepath.Base(path)
		if model := describeDeviceID(id); model != "" {
			description = "USB: " + model
		}
		detected = append(detected, Detected{
			Target:      Target{Scheme: SchemeFile, Address: path},
			Description: description,
		})
	}
	return detected
}

func readDeviceID(path string) (string, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return "", err
	}
	defer unix.Close(fd)

	var buf [1024]byte
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), lpiocGetDeviceID, uintptr(unsafe.Pointer(&buf)))
	if errno != 0 {
		return "", fmt.Errorf("GET_DEVICE_ID: %w", errno)
	}

	// Drivers disagree on whether the leading length counts itself, so the
	// string is cut at the first NUL instead.
	id := buf[2:]
	if i := bytes.IndexByte(id, 0); i >= 0 {
		id = id[:i]
	}
	return string(id), nil
}
