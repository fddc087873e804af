package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/signalhub/internal/signal"
)

const namespace = "signalhub"

// Collector records router events as Prometheus metrics. It implements
// router.Observer.
type Collector struct {
	submitted *prometheus.CounterVec
	evicted   *prometheus.CounterVec
	taken     *prometheus.CounterVec
	depth     *prometheus.GaugeVec
}

// NewCollector creates a collector and registers it with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "signals_submitted_total", Help: "Signals submitted, by verdict"},
			[]string{"channel", "outcome", "reason"},
		),
		evicted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "queue_evictions_total", Help: "Oldest signals dropped on overflow"},
			[]string{"channel"},
		),
		taken: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "signals_taken_total", Help: "Signals handed to consumers"},
			[]string{"channel"},
		),
		depth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "queue_depth", Help: "Pending signals per channel"},
			[]string{"channel"},
		),
	}

	for _, col := range []prometheus.Collector{c.submitted, c.evicted, c.taken, c.depth} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveSubmit counts a verdict and tracks depth on enqueue.
func (c *Collector) ObserveSubmit(channel string, res signal.Result) {
	c.submitted.WithLabelValues(channel, string(res.Outcome), res.Reason).Inc()
	if res.Outcome == signal.Queued {
		c.depth.WithLabelValues(channel).Set(float64(res.Depth))
	}
}

// ObserveEviction counts an overflow drop.
func (c *Collector) ObserveEviction(channel string) {
	c.evicted.WithLabelValues(channel).Inc()
}

// ObserveTake counts a take and records the remaining depth.
func (c *Collector) ObserveTake(channel string, depth int) {
	c.taken.WithLabelValues(channel).Inc()
	c.depth.WithLabelValues(channel).Set(float64(depth))
}
