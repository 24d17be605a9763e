package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts pack lifecycle transitions and routed commands.
type Metrics interface {
	IncPackEvent(pack, state string)
	SetPacksLoaded(n int)
	IncCommand(command, outcome string)
	ObserveCommandDuration(command string, durationSeconds float64)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncPackEvent(string, string)            {}
func (Noop) SetPacksLoaded(int)                     {}
func (Noop) IncCommand(string, string)              {}
func (Noop) ObserveCommandDuration(string, float64) {}

// Prom implements Metrics backed by Prometheus collectors registered on the
// default registerer.
type Prom struct {
	packEvents      *prometheus.CounterVec
	packsLoaded     prometheus.Gauge
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	once            sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		packEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pack_events_total",
			Help:      "Pack lifecycle transitions by pack and state",
		}, []string{"pack", "state"}),
		packsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packs_loaded",
			Help:      "Packs present in the registry after the last reload",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Routed commands by name and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command handling latency by name",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.packEvents, p.packsLoaded, p.commands, p.commandDuration)
	})
}

func (p *Prom) IncPackEvent(pack, state string) {
	p.packEvents.WithLabelValues(pack, state).Inc()
}

func (p *Prom) SetPacksLoaded(n int) {
	p.packsLoaded.Set(float64(n))
}

func (p *Prom) IncCommand(command, outcome string) {
	p.commands.WithLabelValues(command, outcome).Inc()
}

func (p *Prom) ObserveCommandDuration(command string, durationSeconds float64) {
	p.commandDuration.WithLabelValues(command).Observe(durationSeconds)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
