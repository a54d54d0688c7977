// Package ads1115 reads single-ended channels of an ADS1115 over I2C.
package ads1115

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01
)

// Defaults.
const (
	DefaultAddress    = 0x48
	DefaultSampleRate = 128
	// DefaultVRefMilli is the supply of the divider.
	DefaultVRefMilli = 3300
	// FullScaleCode is the code at the PGA full scale of a single-ended conversion.
	FullScaleCode = 0x7fff
	// FullScaleMilli is the PGA full scale, ±4.096V.
	FullScaleMilli = 4096
)

// ErrDisabled indicates sampling a disabled converter.
var ErrDisabled = errors.New("adc disabled")

// Config configures the converter.
type Config struct {
	Bus        string
	Address    uint16
	SampleRate int
	// VRefMilli is the voltage across the divider, which must not exceed
	// FullScaleMilli.
	VRefMilli uint16
}

// ADC is an ADS1115 in single-shot mode. The chip powers down after each
// conversion, so Enable and Disable only gate sampling.
type ADC struct {
	dev        *i2c.Dev
	bus        i2c.BusCloser
	sampleRate int
	maxCode    uint16
	enabled    bool
}

// Open initializes the host and opens the I2C bus.
func Open(conf Config) (*ADC, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(conf.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	addr := conf.Address
	if addr == 0 {
		addr = DefaultAddress
	}
	a := New(&i2c.Dev{Addr: addr, Bus: bus}, conf.SampleRate, conf.VRefMilli)
	a.bus = bus
	return a, nil
}

// New creates an ADC on an opened device. vrefMilli is the divider supply,
// 0 selects DefaultVRefMilli.
func New(dev *i2c.Dev, sampleRate int, vrefMilli uint16) *ADC {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if vrefMilli == 0 {
		vrefMilli = DefaultVRefMilli
	}
	return &ADC{dev: dev, sampleRate: sampleRate, maxCode: CodeAt(vrefMilli)}
}

// CodeAt returns the conversion code of a voltage, clamped to FullScaleCode.
func CodeAt(milli uint16) uint16 {
	code := (uint32(milli)*(FullScaleCode+1) + FullScaleMilli/2) / FullScaleMilli
	if code > FullScaleCode {
		return FullScaleCode
	}
	return uint16(code)
}

// Close closes the bus if opened by Open.
func (a *ADC) Close() error {
	if a.bus != nil {
		return a.bus.Close()
	}
	return nil
}

// Enable implements device.ADC.
func (a *ADC) Enable() error {
	a.enabled = true
	return nil
}

// Disable implements device.ADC.
func (a *ADC) Disable() error {
	a.enabled = false
	return nil
}

// MaxCode implements device.ADC. It's the code of the divider supply,
// not the PGA full scale.
func (a *ADC) MaxCode() uint16 {
	return a.maxCode
}

// Sample implements device.ADC. Negative readings are clamped to 0.
func (a *ADC) Sample(channel int) (uint16, error) {
	if !a.enabled {
		return 0, ErrDisabled
	}
	msb, lsb, err := configForChannel(channel, a.sampleRate)
	if err != nil {
		return 0, err
	}
	if err := a.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	time.Sleep(conversionDelay(a.sampleRate))
	readBuf := make([]byte, 2)
	if err := a.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}
	raw := int16(readBuf[0])<<8 | int16(readBuf[1])
	if raw < 0 {
		return 0, nil
	}
	return uint16(raw), nil
}

func conversionDelay(sampleRate int) time.Duration {
	return time.Duration(1000/sampleRate+2) * time.Millisecond
}

func configForChannel(channel, sampleRate int) (byte, byte, error) {
	if channel < 0 || channel > 3 {
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	// AINx against GND
	mux := byte(0x4 + channel)
	// ±4.096V
	pga := byte(0x1)
	var dr byte
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		dr = 0x4
	}
	var config uint16 = 0x8000 // start single conversion
	config |= uint16(mux) << 12
	config |= uint16(pga) << 9
	config |= 1 << 8 // single-shot
	config |= uint16(dr) << 5
	config |= 0x3 // comparator disabled
	return byte(config >> 8), byte(config & 0xff), nil
}
