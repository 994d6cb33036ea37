package domain

import (
	m "github.com/mouse-blink/goevolve/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "goevolve"

// Metrics holds the Prometheus collectors updated by schedulers and weavers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// InvocationsTotal counts dispatched calls per target.
	InvocationsTotal *prometheus.CounterVec

	// RoundsSealedTotal counts sealed rounds per target.
	RoundsSealedTotal *prometheus.CounterVec

	// BestScore is the score of the current base after the latest seal.
	BestScore *prometheus.GaugeVec

	// VariantsCreatedTotal counts variants per target and origin.
	VariantsCreatedTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		InvocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invocations_total",
			Help:      "Number of calls dispatched to a target.",
		}, []string{"target"}),
		RoundsSealedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rounds_sealed_total",
			Help:      "Number of rounds sealed and ranked.",
		}, []string{"target"}),
		BestScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "best_score",
			Help:      "Mean score of the best variant of the last sealed round.",
		}, []string{"target"}),
		VariantsCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "variants_created_total",
			Help:      "Number of variants created by origin.",
		}, []string{"target", "origin"}),
	}
}

func (mt *Metrics) callDispatched(target m.TargetID) {
	if mt == nil {
		return
	}

	mt.InvocationsTotal.WithLabelValues(string(target)).Inc()
}

func (mt *Metrics) roundSealed(target m.TargetID, best float64) {
	if mt == nil {
		return
	}

	mt.RoundsSealedTotal.WithLabelValues(string(target)).Inc()
	mt.BestScore.WithLabelValues(string(target)).Set(best)
}

func (mt *Metrics) variantCreated(target m.TargetID, origin m.Origin) {
	if mt == nil {
		return
	}

	mt.VariantsCreatedTotal.WithLabelValues(string(target), string(origin)).Inc()
}
