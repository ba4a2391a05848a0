package metrics

import (
	"database/sql"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterCorpusPool exposes connection pool statistics of the corpus
// database. stats is read on every scrape. Registering twice is a no-op.
func RegisterCorpusPool(reg prometheus.Registerer, stats func() sql.DBStats) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "diktim_corpus_db_open_connections",
			Help: "Open connections in the corpus database pool",
		}, func() float64 { return float64(stats().OpenConnections) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "diktim_corpus_db_in_use_connections",
			Help: "Corpus database connections currently in use",
		}, func() float64 { return float64(stats().InUse) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "diktim_corpus_db_idle_connections",
			Help: "Idle corpus database connections",
		}, func() float64 { return float64(stats().Idle) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "diktim_corpus_db_wait_total",
			Help: "Connections waited for in the corpus database pool",
		}, func() float64 { return float64(stats().WaitCount) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
