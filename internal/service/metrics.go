package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the service-level Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	commits     *prometheus.CounterVec
	orphanBlobs prometheus.Counter
	viewURLs    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_commits_total",
				Help: "Upload commits by outcome (ok or error kind).",
			},
			[]string{"outcome"},
		),
		orphanBlobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docvault_orphan_blobs_total",
			Help: "Blobs a failed commit could not settle, left for reconciliation.",
		}),
		viewURLs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_view_urls_total",
				Help: "View URL issuance by outcome (ok or error kind).",
			},
			[]string{"outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.commits, m.orphanBlobs, m.viewURLs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return "unknown"
}

func (m *Metrics) observeCommit(err error) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome(err)).Inc()
	if se, ok := err.(*Error); ok && se.Orphaned() {
		m.orphanBlobs.Inc()
	}
}

func (m *Metrics) observeViewURL(err error) {
	if m == nil {
		return
	}
	m.viewURLs.WithLabelValues(outcome(err)).Inc()
}
