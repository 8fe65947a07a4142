package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolStat is a snapshot of connection pool counters.
type PoolStat struct {
	Total    int32
	Idle     int32
	Acquired int32
	Max      int32
}

// DBPoolStatFunc returns database pool statistics without importing pgxpool.
type DBPoolStatFunc func() PoolStat

type poolGauge struct {
	desc  *prometheus.Desc
	value func(PoolStat) int32
}

// dbPoolCollector exposes pool gauges read at scrape time.
type dbPoolCollector struct {
	statFunc DBPoolStatFunc
	gauges   []poolGauge
}

// NewDBPoolCollector creates a new collector that exposes DB pool gauges.
func NewDBPoolCollector(statFunc DBPoolStatFunc) prometheus.Collector {
	gauge := func(name, help string, value func(PoolStat) int32) poolGauge {
		return poolGauge{desc: prometheus.NewDesc("huddle_db_pool_"+name, help, nil, nil), value: value}
	}
	return &dbPoolCollector{
		statFunc: statFunc,
		gauges: []poolGauge{
			gauge("total_conns", "Total number of connections in the DB pool.", func(s PoolStat) int32 { return s.Total }),
			gauge("idle_conns", "Number of idle connections in the DB pool.", func(s PoolStat) int32 { return s.Idle }),
			gauge("acquired_conns", "Number of acquired connections in the DB pool.", func(s PoolStat) int32 { return s.Acquired }),
			gauge("max_conns", "Maximum size of the DB pool.", func(s PoolStat) int32 { return s.Max }),
		},
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.statFunc()
	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, float64(g.value(s)))
	}
}
