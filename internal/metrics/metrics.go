// Package metrics exposes reflector health as Prometheus gauges/counters,
// grounded on the teacher's PrometheusMetrics struct in prometheus.go
// (promauto-registered GaugeVec/CounterVec, scraped over net/http). The
// reflector loop updates these counters inline; a separate goroutine only
// serves /metrics scrapes and never touches reflector state directly.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
)

// Metrics holds the reflector's Prometheus collectors.
type Metrics struct {
	RosterSize         prometheus.Gauge
	ActiveTransmission prometheus.Gauge
	FramesForwarded    prometheus.Counter
	BlocklistDrops     prometheus.Counter
	WatchdogExpiries   prometheus.Counter
	OverlapDrops       prometheus.Counter

	registry *prometheus.Registry
	server   *http.Server
}

// New registers all collectors against a fresh registry, isolated from the
// default global one so tests can construct multiple instances.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		RosterSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ysfreflector_roster_size",
			Help: "Number of currently registered repeater endpoints.",
		}),
		ActiveTransmission: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ysfreflector_active_transmission",
			Help: "1 while a transmission holds the channel, 0 when idle.",
		}),
		FramesForwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "ysfreflector_frames_forwarded_total",
			Help: "Total DATA frames forwarded to roster endpoints.",
		}),
		BlocklistDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "ysfreflector_blocklist_drops_total",
			Help: "Total frames dropped by the blocklist gate.",
		}),
		WatchdogExpiries: factory.NewCounter(prometheus.CounterOpts{
			Name: "ysfreflector_watchdog_expiries_total",
			Help: "Total times the transmission watchdog forced a transmission closed.",
		}),
		OverlapDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "ysfreflector_overlap_drops_total",
			Help: "Total frames dropped due to overlapping transmission attempts.",
		}),
		registry: reg,
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ysfreflector_process_rss_bytes",
		Help: "Resident set size of this process, in bytes.",
	}, func() float64 {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return 0
		}
		info, err := p.MemoryInfo()
		if err != nil || info == nil {
			return 0
		}
		return float64(info.RSS)
	})

	return m
}

// Serve starts the /metrics HTTP endpoint on addr. It runs on its own
// goroutine; Shutdown should be called during reflector teardown.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: serve %s: %v", addr, err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the metrics HTTP server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
