package chain

import "github.com/prometheus/client_golang/prometheus"

// PrometheusRecorder is the out-of-the-box MetricsRecorder, wiring chain
// activity into four counters under the given namespace.
type PrometheusRecorder struct {
	addCalled         prometheus.Counter
	reconstructCalled prometheus.Counter
	sliceRediffed     prometheus.Counter
	patchSkipped      prometheus.Counter
}

// NewPrometheusRecorder registers its counters against
// prometheus.DefaultRegisterer and returns the recorder. It panics if
// counters with the same names are already registered there, and it offers
// no way to register against a different registry.
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	r := &PrometheusRecorder{
		addCalled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "add_total",
			Help:      "Total number of Add calls.",
		}),
		reconstructCalled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "reconstruct_total",
			Help:      "Total number of PatchToDate/PatchToDateInto calls.",
		}),
		sliceRediffed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "slice_rediffed_total",
			Help:      "Total number of neighbor slices rediffed by KeepFuture insertions.",
		}),
		patchSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "patch_skipped_total",
			Help:      "Total number of patch application failures swallowed by a skip policy.",
		}),
	}
	prometheus.MustRegister(r.addCalled, r.reconstructCalled, r.sliceRediffed, r.patchSkipped)
	return r
}

func (r *PrometheusRecorder) AddCalled()         { r.addCalled.Inc() }
func (r *PrometheusRecorder) ReconstructCalled() { r.reconstructCalled.Inc() }
func (r *PrometheusRecorder) SliceRediffed()     { r.sliceRediffed.Inc() }
func (r *PrometheusRecorder) PatchSkipped()      { r.patchSkipped.Inc() }

var _ MetricsRecorder = (*PrometheusRecorder)(nil)
