//go:build !linux

package usbreset

// ResetNode is not supported on this platform.
func ResetNode(node string) error {
	return ErrUnsupported
}
