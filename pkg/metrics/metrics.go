// Package metrics exposes host controller metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/host"
	"github.com/robotalks/thermo.go/pkg/l0/comm"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

const namespace = "thermo"

// Metrics implements host.Observer by updating Prometheus collectors.
type Metrics struct {
	host.NopObserver

	Registry *prometheus.Registry

	framesDecoded  prometheus.Counter
	frameFaults    *prometheus.CounterVec
	readFailures   prometheus.Counter
	invalidReading prometheus.Counter
	linkResets     prometheus.Counter
	temperature    *prometheus.GaugeVec
	resistance     *prometheus.GaugeVec
	duty           prometheus.Gauge
	linkPhase      prometheus.Gauge

	phase atomic.Int32
}

// New creates Metrics with a dedicated registry including Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		framesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Number of decoded frames",
		}),
		frameFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_faults_total",
			Help:      "Number of dropped frames by reason",
		}, []string{"reason"}),
		readFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_failures_total",
			Help:      "Number of failed transport reads and opens",
		}),
		invalidReading: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_readings_total",
			Help:      "Number of readings out of the plausible range",
		}),
		linkResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_resets_total",
			Help:      "Number of transport resets by the watchdog",
		}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last valid temperature",
		}, []string{"sensor"}),
		resistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resistance_ohms",
			Help:      "Last thermistor resistance",
		}, []string{"sensor"}),
		duty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duty_cycle",
			Help:      "Last applied duty cycle (0-255)",
		}),
		linkPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_phase",
			Help:      "Link phase: 0 connected, 1 stalled, 2 resetting",
		}),
	}
	m.Registry.MustRegister(
		m.framesDecoded,
		m.frameFaults,
		m.readFailures,
		m.invalidReading,
		m.linkResets,
		m.temperature,
		m.resistance,
		m.duty,
		m.linkPhase,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// FrameFault implements comm.FaultNotifier.
func (m *Metrics) FrameFault(r comm.FeedResult) {
	m.frameFaults.WithLabelValues(r.Status.String()).Inc()
}

// ReadingDecoded implements host.Observer.
func (m *Metrics) ReadingDecoded(rec *thermistor.Thermistor, temp float64, valid bool) {
	m.framesDecoded.Inc()
	m.resistance.WithLabelValues(rec.Name).Set(float64(rec.Resistance))
	if !valid {
		m.invalidReading.Inc()
		return
	}
	m.temperature.WithLabelValues(rec.Name).Set(temp)
}

// DutyApplied implements host.Observer.
func (m *Metrics) DutyApplied(duty uint8, temp float64) {
	m.duty.Set(float64(duty))
}

// ReadFailed implements host.Observer.
func (m *Metrics) ReadFailed(err error) {
	m.readFailures.Inc()
}

// LinkChanged implements host.Observer.
func (m *Metrics) LinkChanged(from, to watchdog.Phase) {
	m.phase.Store(int32(to))
	m.linkPhase.Set(float64(to))
}

// LinkReset implements host.Observer.
func (m *Metrics) LinkReset(err error) {
	m.linkResets.Inc()
}

// Phase returns the last observed link phase.
func (m *Metrics) Phase() watchdog.Phase {
	return watchdog.Phase(m.phase.Load())
}

// Handler serves /metrics and /health. Health fails while the link is resetting.
func (m *Metrics) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		phase := m.Phase()
		if phase == watchdog.PhaseResetting {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		w.Write([]byte(phase.String()))
	})
	return mux
}

// Serve serves Handler on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	return (&Server{Addr: addr, Metrics: m}).Run(ctx)
}

// Server serves metrics over HTTP.
type Server struct {
	Addr    string
	Metrics *Metrics
	// Routes are additional handlers served with metrics.
	Routes map[string]http.Handler
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "metrics"
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := s.Metrics.Handler()
	for pattern, h := range s.Routes {
		mux.Handle(pattern, h)
	}
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	glog.Infof("metrics server listening on %s", s.Addr)
	err := framework.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			glog.Warningf("metrics server shutdown: %v", err)
		}
	}, srv.ListenAndServe)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
