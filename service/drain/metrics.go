package drain

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors updated during a drain. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	acknowledged *prometheus.CounterVec
	batches      *prometheus.CounterVec
	receivers    *prometheus.CounterVec
	remaining    *prometheus.GaugeVec
}

// NewMetrics creates the drain collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	res := &Metrics{
		acknowledged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drainq",
			Name:      "messages_acknowledged_total",
			Help:      "Messages acknowledged and removed from the queue.",
		}, []string{"queue"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drainq",
			Name:      "batches_total",
			Help:      "Non-empty batches received.",
		}, []string{"queue"}),
		receivers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drainq",
			Name:      "receivers_acquired_total",
			Help:      "Receivers acquired, by kind (session, plain, dead_letter).",
		}, []string{"queue", "kind"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "drainq",
			Name:      "messages_remaining",
			Help:      "Last observed message count.",
		}, []string{"queue"}),
	}

	if reg != nil {
		reg.MustRegister(res.acknowledged, res.batches, res.receivers, res.remaining)
	}

	return res
}

func (obj *Metrics) observeAcknowledged(queue string, n int) {
	if obj == nil {
		return
	}
	obj.acknowledged.WithLabelValues(queue).Add(float64(n))
	obj.batches.WithLabelValues(queue).Inc()
}

func (obj *Metrics) observeReceiver(queue, kind string) {
	if obj == nil {
		return
	}
	obj.receivers.WithLabelValues(queue, kind).Inc()
}

func (obj *Metrics) observeRemaining(queue string, count int64) {
	if obj == nil {
		return
	}
	obj.remaining.WithLabelValues(queue).Set(float64(count))
}
