package metrics

import "github.com/prometheus/client_golang/prometheus"

// Trade agrupa as métricas do trade engine.
// Um *Trade nil é válido e não registra nada (útil em testes).
type Trade struct {
	StakesPlaced       prometheus.Counter
	StakeRejections    *prometheus.CounterVec // por motivo
	ConflictRetries    *prometheus.CounterVec // por operação
	Settlements        *prometheus.CounterVec // por resultado: decided | draw | failed
	StakesSettled      *prometheus.CounterVec // por status final
	NotifyFailures     prometheus.Counter
	TxDuration         *prometheus.HistogramVec
	FeedUpdatesApplied *prometheus.CounterVec // por tipo de mensagem
}

func NewTrade(reg prometheus.Registerer) *Trade {
	m := &Trade{
		StakesPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trade_stakes_placed_total",
			Help: "Apostas aceitas (novas ou incrementadas)",
		}),
		StakeRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_stake_rejections_total",
			Help: "Apostas recusadas por motivo",
		}, []string{"reason"}),
		ConflictRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_conflict_retries_total",
			Help: "Transações repetidas por conflito de concorrência",
		}, []string{"op"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_settlements_total",
			Help: "Liquidações de eventos por resultado",
		}, []string{"outcome"}),
		StakesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_stakes_settled_total",
			Help: "Apostas liquidadas por status final",
		}, []string{"status"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trade_notify_failures_total",
			Help: "Falhas ao publicar notificações (best-effort)",
		}),
		TxDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trade_tx_duration_seconds",
			Help:    "Duração das transações do trade engine",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		FeedUpdatesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_feed_updates_applied_total",
			Help: "Atualizações do feed aplicadas na event store",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.StakesPlaced, m.StakeRejections, m.ConflictRetries, m.Settlements,
			m.StakesSettled, m.NotifyFailures, m.TxDuration, m.FeedUpdatesApplied,
		)
	}
	return m
}

func (m *Trade) Placed() {
	if m != nil {
		m.StakesPlaced.Inc()
	}
}

func (m *Trade) Rejected(reason string) {
	if m != nil {
		m.StakeRejections.WithLabelValues(reason).Inc()
	}
}

func (m *Trade) Retried(op string) {
	if m != nil {
		m.ConflictRetries.WithLabelValues(op).Inc()
	}
}

func (m *Trade) Settled(outcome string, byStatus map[string]int) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(outcome).Inc()
	for status, n := range byStatus {
		m.StakesSettled.WithLabelValues(status).Add(float64(n))
	}
}

func (m *Trade) NotifyFailed() {
	if m != nil {
		m.NotifyFailures.Inc()
	}
}

func (m *Trade) ObserveTx(op string, seconds float64) {
	if m != nil {
		m.TxDuration.WithLabelValues(op).Observe(seconds)
	}
}

func (m *Trade) FeedApplied(kind string) {
	if m != nil {
		m.FeedUpdatesApplied.WithLabelValues(kind).Inc()
	}
}
