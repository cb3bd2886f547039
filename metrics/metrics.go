package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the counters of extraction and merge runs. A nil *Registry
// records nothing.
type Registry struct {
	reg             *prometheus.Registry
	Documents       *prometheus.CounterVec
	Candidates      *prometheus.CounterVec
	Upserts         *prometheus.CounterVec
	InvoiceConflict prometheus.Counter
	DuplicateGroups prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conciliador_documents_total",
		Help: "Documents processed by kind and result.",
	}, []string{"kind", "result"})
	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conciliador_candidates_total",
		Help: "Reference candidates by class and decision.",
	}, []string{"class", "decision"})
	upserts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conciliador_upserts_total",
		Help: "Merge engine decisions.",
	}, []string{"action"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conciliador_invoice_conflicts_total",
		Help: "Identifiers associated with more than one invoice.",
	})
	groups := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conciliador_duplicate_groups",
		Help: "Case ids repeated in the last extraction.",
	})

	r.MustRegister(documents, candidates, upserts, conflicts, groups)
	return &Registry{
		reg:             r,
		Documents:       documents,
		Candidates:      candidates,
		Upserts:         upserts,
		InvoiceConflict: conflicts,
		DuplicateGroups: groups,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveDocument(kind string, valid bool) {
	if r == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	r.Documents.WithLabelValues(kind, result).Inc()
}

func (r *Registry) ObserveCandidates(class string, accepted, rejected int) {
	if r == nil {
		return
	}
	r.Candidates.WithLabelValues(class, "accepted").Add(float64(accepted))
	r.Candidates.WithLabelValues(class, "rejected").Add(float64(rejected))
}

func (r *Registry) ObserveUpsert(action string) {
	if r == nil {
		return
	}
	r.Upserts.WithLabelValues(action).Inc()
}

func (r *Registry) ObserveConflict() {
	if r == nil {
		return
	}
	r.InvoiceConflict.Inc()
}

func (r *Registry) SetDuplicateGroups(n int) {
	if r == nil {
		return
	}
	r.DuplicateGroups.Set(float64(n))
}
