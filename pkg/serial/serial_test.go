package serial

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	bugst "go.bug.st/serial"
)

type bufferPort struct {
	bytes.Buffer
	timeout time.Duration
}

func (p *bufferPort) SetReadTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}

func (p *bufferPort) Close() error {
	return nil
}

func TestMode(t *testing.T) {
	conf := &Config{Name: "/dev/ttyUSB0", Baud: 115200}
	require.Equal(t, &bugst.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}, conf.Mode())
}

func TestOpenRequiresName(t *testing.T) {
	_, err := Open(&Config{Baud: 115200})
	require.Error(t, err)
}

func TestDialer(t *testing.T) {
	d := NewDialer("/dev/ttyUSB0", 115200, 0)
	var opened *Config
	port := &bufferPort{}
	port.WriteString("data")
	d.OpenFunc = func(conf *Config) (Port, error) {
		opened = conf
		return port, nil
	}
	transport, err := d.Open()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", opened.Name)
	buf := make([]byte, 8)
	n, err := transport.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "data", string(buf[:n]))
	require.NoError(t, transport.Close())
}
