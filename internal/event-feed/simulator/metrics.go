package simulator

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Generated prometheus.Counter
	Published *prometheus.CounterVec
	Failures  prometheus.Counter
	Live      prometheus.Gauge
}

// NewMetrics registra no reg informado; reg nil cria métricas soltas (testes)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_events_generated_total",
			Help: "Partidas mock criadas",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_updates_published_total",
			Help: "Snapshots publicados no Kafka por tipo",
		}, []string{"kind"}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_publish_failures_total",
			Help: "Falhas ao publicar no Kafka",
		}),
		Live: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feed_live_events",
			Help: "Partidas ainda não encerradas no catálogo",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Generated, m.Published, m.Failures, m.Live)
	}
	return m
}
