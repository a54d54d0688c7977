// Package hwmon drives fan outputs exposed by Linux hwmon drivers.
package hwmon

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

// DefaultRoot is where the kernel exposes hwmon devices.
const DefaultRoot = "/sys/class/hwmon"

// ErrNotFound indicates no hwmon device matches.
var ErrNotFound = errors.New("hwmon sensor not found")

// Find returns the first directory under root whose name file contains name.
func Find(root, name string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		content, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			glog.V(2).Infof("skip %s: %v", dir, err)
			continue
		}
		if strings.Contains(string(content), name) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %q in %s", ErrNotFound, name, root)
}

// Fan is a PWM fan channel of a hwmon device.
type Fan struct {
	// ControlPath selects the control mode of the channel.
	ControlPath string
	// ControlValue is written to ControlPath to take manual control.
	ControlValue string
	// PWMPath receives the duty cycle.
	PWMPath string
}

// NewFan creates a Fan with files relative to the hwmon device directory.
func NewFan(dir, controlFile, controlValue, pwmFile string) *Fan {
	return &Fan{
		ControlPath:  filepath.Join(dir, controlFile),
		ControlValue: controlValue,
		PWMPath:      filepath.Join(dir, pwmFile),
	}
}

// Init takes manual control and sets full speed.
func (f *Fan) Init() error {
	if err := writeFile(f.ControlPath, f.ControlValue); err != nil {
		return err
	}
	return f.SetDuty(255)
}

// SetDuty writes the duty cycle.
func (f *Fan) SetDuty(duty uint8) error {
	return writeFile(f.PWMPath, strconv.Itoa(int(duty)))
}

// writeFile writes an existing attribute file in a single write.
func writeFile(fn, content string) error {
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.WriteString(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
