// Package usbreset power-cycles a USB device selected by vendor/product ids.
package usbreset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// Defaults of Resetter.
const (
	DefaultSysfsRoot = "/sys/bus/usb/devices"
	DefaultDevRoot   = "/dev/bus/usb"
)

var (
	// ErrNotFound indicates no device matches.
	ErrNotFound = errors.New("usb device not found")
	// ErrAmbiguous indicates multiple devices match and serial can't tell them apart.
	ErrAmbiguous = errors.New("multiple usb devices match")
	// ErrUnsupported indicates resetting isn't supported on this platform.
	ErrUnsupported = errors.New("usb reset not supported")
)

// ParseID parses a hex vendor or product id, e.g. "1a86" or "0x1A86".
func ParseID(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid usb id %q: %w", s, err)
	}
	return uint16(v), nil
}

// Match selects a device.
type Match struct {
	Vendor  uint16
	Product uint16
	// Serial is only used when multiple devices have the same ids.
	Serial string
}

// ParseMatch parses hex vendor and product ids.
func ParseMatch(vendor, product, serial string) (Match, error) {
	m := Match{Serial: serial}
	var err error
	if m.Vendor, err = ParseID(vendor); err != nil {
		return m, err
	}
	m.Product, err = ParseID(product)
	return m, err
}

func (m Match) String() string {
	s := fmt.Sprintf("%04x:%04x", m.Vendor, m.Product)
	if m.Serial != "" {
		s += " serial " + m.Serial
	}
	return s
}

// Device is a USB device found in sysfs.
type Device struct {
	Path    string
	Vendor  uint16
	Product uint16
	Serial  string
	Bus     int
	Dev     int
}

// Node returns the device node under devRoot.
func (d *Device) Node(devRoot string) string {
	return filepath.Join(devRoot, fmt.Sprintf("%03d", d.Bus), fmt.Sprintf("%03d", d.Dev))
}

// Enumerate lists USB devices under the sysfs root. Interfaces and entries
// without ids are skipped.
func Enumerate(root string) ([]*Device, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	var devs []*Device
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ":") {
			continue
		}
		dev, err := readDevice(filepath.Join(root, entry.Name()))
		if err != nil {
			glog.V(3).Infof("skip %s: %v", entry.Name(), err)
			continue
		}
		devs = append(devs, dev)
	}
	return devs, nil
}

func readDevice(path string) (*Device, error) {
	dev := &Device{Path: path}
	var err error
	if dev.Vendor, err = readID(path, "idVendor"); err != nil {
		return nil, err
	}
	if dev.Product, err = readID(path, "idProduct"); err != nil {
		return nil, err
	}
	if dev.Bus, err = readInt(path, "busnum"); err != nil {
		return nil, err
	}
	if dev.Dev, err = readInt(path, "devnum"); err != nil {
		return nil, err
	}
	dev.Serial, _ = readAttr(path, "serial")
	return dev, nil
}

func readAttr(path, name string) (string, error) {
	content, err := os.ReadFile(filepath.Join(path, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func readID(path, name string) (uint16, error) {
	s, err := readAttr(path, name)
	if err != nil {
		return 0, err
	}
	return ParseID(s)
}

func readInt(path, name string) (int, error) {
	s, err := readAttr(path, name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// Find returns the device matching m. The serial number is checked only if
// more than one device has the ids.
func Find(root string, m Match) (*Device, error) {
	devs, err := Enumerate(root)
	if err != nil {
		return nil, err
	}
	var found []*Device
	for _, dev := range devs {
		if dev.Vendor == m.Vendor && dev.Product == m.Product {
			found = append(found, dev)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, m)
	case 1:
		return found[0], nil
	}
	if m.Serial == "" {
		return nil, fmt.Errorf("%w: %s, %d devices", ErrAmbiguous, m, len(found))
	}
	for _, dev := range found {
		if dev.Serial == m.Serial {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, m)
}

// Resetter implements host.Resetter.
type Resetter struct {
	Match     Match
	SysfsRoot string
	DevRoot   string
	// ResetFunc issues the reset on the device node, defaults to ResetNode.
	ResetFunc func(node string) error
}

// NewResetter creates a Resetter with default roots.
func NewResetter(m Match) *Resetter {
	return &Resetter{Match: m, SysfsRoot: DefaultSysfsRoot, DevRoot: DefaultDevRoot}
}

// Reset finds the device and resets it.
func (r *Resetter) Reset() error {
	dev, err := Find(r.SysfsRoot, r.Match)
	if err != nil {
		return err
	}
	node := dev.Node(r.DevRoot)
	glog.Infof("reset usb device %s at %s", r.Match, node)
	reset := r.ResetFunc
	if reset == nil {
		reset = ResetNode
	}
	if err := reset(node); err != nil {
		return fmt.Errorf("reset %s error: %w", node, err)
	}
	return nil
}
