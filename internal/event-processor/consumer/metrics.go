package consumer

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Consumed     prometheus.Counter
	Applied      *prometheus.CounterVec
	Skipped      *prometheus.CounterVec
	DeadLettered prometheus.Counter
	Errors       *prometheus.CounterVec
}

// NewMetrics registra no reg informado; reg nil cria métricas soltas (testes)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "event_proc_messages_consumed_total",
			Help: "mensagens consumidas do feed",
		}),
		Applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_proc_applied_total",
			Help: "snapshots aplicados no Event Store por tipo",
		}, []string{"kind"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_proc_skipped_total",
			Help: "snapshots descartados por motivo",
		}, []string{"reason"}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "event_proc_dead_lettered_total",
			Help: "mensagens enviadas para a DLQ",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_proc_errors_total",
			Help: "erros por estágio",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.Consumed, m.Applied, m.Skipped, m.DeadLettered, m.Errors)
	}
	return m
}
