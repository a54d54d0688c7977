//go:build linux

package usbreset

import (
	"golang.org/x/sys/unix"
)

// _IO('U', 20)
const usbdevfsReset = 0x5514

// ResetNode issues USBDEVFS_RESET on the device node.
func ResetNode(node string) error {
	fd, err := unix.Open(node, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	_, err = unix.IoctlRetInt(fd, usbdevfsReset)
	return err
}
