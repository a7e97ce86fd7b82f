package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts remote store calls, offline fallbacks, reconciliation
// results, local decrypt failures and salt resets.
type LedgerMetrics struct {
	remoteCalls     *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	syncResults     *prometheus.CounterVec
	decryptFailures prometheus.Counter
	saltResets      prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	remoteCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_remote_calls_total",
		Help: "Remote stored procedure calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_local_fallbacks_total",
		Help: "Operations served from the local encrypted store after a remote failure.",
	}, []string{"operation"})
	syncResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_sync_records_total",
		Help: "Offline-queued records processed by reconciliation.",
	}, []string{"result"})
	decryptFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_local_decrypt_failures_total",
		Help: "Local entries that failed authentication or decoding.",
	})
	saltResets := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_local_salt_resets_total",
		Help: "Users whose local data was dropped because their encryption salt was unreadable.",
	})
	reg.MustRegister(remoteCalls, fallbacks, syncResults, decryptFailures, saltResets)
	return &LedgerMetrics{
		remoteCalls:     remoteCalls,
		fallbacks:       fallbacks,
		syncResults:     syncResults,
		decryptFailures: decryptFailures,
		saltResets:      saltResets,
	}
}

func (m *LedgerMetrics) ObserveRemote(operation string, err error) {
	if m == nil || m.remoteCalls == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.remoteCalls.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}

func (m *LedgerMetrics) IncFallback(operation string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *LedgerMetrics) AddSynced(n int) {
	if m == nil || m.syncResults == nil || n <= 0 {
		return
	}
	m.syncResults.WithLabelValues("synced").Add(float64(n))
}

func (m *LedgerMetrics) AddSyncFailed(n int) {
	if m == nil || m.syncResults == nil || n <= 0 {
		return
	}
	m.syncResults.WithLabelValues("failed").Add(float64(n))
}

func (m *LedgerMetrics) IncDecryptFailure() {
	if m == nil || m.decryptFailures == nil {
		return
	}
	m.decryptFailures.Inc()
}

func (m *LedgerMetrics) IncSaltReset() {
	if m == nil || m.saltResets == nil {
		return
	}
	m.saltResets.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
