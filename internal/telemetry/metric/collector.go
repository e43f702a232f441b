package metric

import "github.com/prometheus/client_golang/prometheus"

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// Collector reports pointerd_sessions_active from a SessionCounter at
// scrape time.
type Collector struct {
	sessions SessionCounter
	active   *prometheus.Desc
}

// NewCollector creates a collector over sessions.
func NewCollector(sessions SessionCounter) *Collector {
	return &Collector{
		sessions: sessions,
		active: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sessions_active"),
			"Sessions currently registered.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(c.sessions.Len()))
}
