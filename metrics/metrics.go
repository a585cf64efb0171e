package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Joins = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxleagues_joins_total", Help: "Total successful tournament joins"},
	)
	DuplicateJoins = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxleagues_duplicate_joins_total", Help: "Total joins resolved as already-registered"},
	)
	CredentialSubmissions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxleagues_credential_submissions_total", Help: "Total credential submissions accepted"},
	)
	DecisionsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxleagues_decisions_applied_total", Help: "Total admin decisions that transitioned a registration"},
	)
	DecisionsLost = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxleagues_decisions_lost_total", Help: "Total admin decisions that matched no pending registration"},
	)
)

func Register() {
	prometheus.MustRegister(Joins, DuplicateJoins, CredentialSubmissions, DecisionsApplied, DecisionsLost)
}
