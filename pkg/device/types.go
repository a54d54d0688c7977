// Package device implements the acquisition loop of the sensing device:
// sample the thermistor, compute its resistance and write a frame, once per wake.
package device

// ADC is an analog-to-digital converter.
type ADC interface {
	// Enable powers up the converter.
	Enable() error
	// Disable powers down the converter.
	Disable() error
	// Sample converts the channel. The converter must be enabled.
	Sample(channel int) (uint16, error)
	// MaxCode is the full scale code.
	MaxCode() uint16
}
