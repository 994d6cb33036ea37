package mutagens

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type invocationKey struct {
	receiver string
	operator string
}

// Invocations counts mutator applications per receiver type and operator.
// It is process-wide state made explicit: create one, inject it through
// Counted and call Reset between experiments. It also implements
// prometheus.Collector.
type Invocations struct {
	mu     sync.Mutex
	counts map[invocationKey]int
	desc   *prometheus.Desc
}

// NewInvocations creates an empty registry.
func NewInvocations() *Invocations {
	return &Invocations{
		counts: make(map[invocationKey]int),
		desc: prometheus.NewDesc(
			"goevolve_mutator_applications_total",
			"Number of times a mutation operator was applied.",
			[]string{"receiver", "operator"}, nil,
		),
	}
}

// Log records one application of operator on receiver.
func (i *Invocations) Log(receiver any, operator string) {
	key := invocationKey{receiver: ReceiverKey(receiver), operator: operator}

	i.mu.Lock()
	i.counts[key]++
	i.mu.Unlock()
}

// Count returns the applications recorded for a receiver type, or for all
// receivers when receiver is empty.
func (i *Invocations) Count(receiver string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	total := 0

	for k, n := range i.counts {
		if receiver == "" || k.receiver == receiver {
			total += n
		}
	}

	return total
}

// CountOperator returns the applications recorded for one operator name.
func (i *Invocations) CountOperator(operator string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	total := 0

	for k, n := range i.counts {
		if k.operator == operator {
			total += n
		}
	}

	return total
}

// Reset forgets every recorded application.
func (i *Invocations) Reset() {
	i.mu.Lock()
	i.counts = make(map[invocationKey]int)
	i.mu.Unlock()
}

// Describe implements prometheus.Collector.
func (i *Invocations) Describe(ch chan<- *prometheus.Desc) {
	ch <- i.desc
}

// Collect implements prometheus.Collector.
func (i *Invocations) Collect(ch chan<- prometheus.Metric) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for k, n := range i.counts {
		ch <- prometheus.MustNewConstMetric(i.desc, prometheus.CounterValue, float64(n), k.receiver, k.operator)
	}
}

// ReceiverKey names the receiver the way Invocations groups it: by type.
func ReceiverKey(receiver any) string {
	if receiver == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%T", receiver)
}
