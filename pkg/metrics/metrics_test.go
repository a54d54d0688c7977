package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/host"
	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

var (
	_ host.Observer      = &Metrics{}
	_ comm.FaultNotifier = &Metrics{}
)

func TestObserver(t *testing.T) {
	m := New()
	rec := &thermistor.Thermistor{Name: "radiator_in", Resistance: 10000}
	m.ReadingDecoded(rec, 25, true)
	m.ReadingDecoded(rec, -10, false)
	m.DutyApplied(158, 25)
	m.FrameFault(comm.FeedResult{Status: comm.FeedOverFull})
	m.FrameFault(comm.FeedResult{Status: comm.FeedDeserError})
	m.FrameFault(comm.FeedResult{Status: comm.FeedDeserError})
	m.ReadFailed(errors.New("eof"))
	m.LinkReset(nil)

	require.Equal(t, 2.0, testutil.ToFloat64(m.framesDecoded))
	require.Equal(t, 1.0, testutil.ToFloat64(m.invalidReading))
	require.Equal(t, 25.0, testutil.ToFloat64(m.temperature.WithLabelValues("radiator_in")))
	require.Equal(t, 10000.0, testutil.ToFloat64(m.resistance.WithLabelValues("radiator_in")))
	require.Equal(t, 158.0, testutil.ToFloat64(m.duty))
	require.Equal(t, 1.0, testutil.ToFloat64(m.frameFaults.WithLabelValues("overfull")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.frameFaults.WithLabelValues("deser-error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.readFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.linkResets))
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHandler(t *testing.T) {
	m := New()
	h := m.Handler()
	m.DutyApplied(200, 60)

	code, body := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, code)
	require.True(t, strings.Contains(body, "thermo_duty_cycle 200"), body)

	code, body = get(t, h, "/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "connected", body)

	m.LinkChanged(watchdog.PhaseStalled, watchdog.PhaseResetting)
	code, _ = get(t, h, "/health")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, 2.0, testutil.ToFloat64(m.linkPhase))
}

func TestServerStops(t *testing.T) {
	s := &Server{Addr: "127.0.0.1:0", Metrics: New()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Run(ctx), context.Canceled)
}
