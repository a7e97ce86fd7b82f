package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLedgerMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.ObserveRemote("upsert", nil)
	m.ObserveRemote("upsert", errors.New("offline"))
	m.ObserveRemote("upsert", errors.New("offline"))
	m.IncFallback("upsert")
	m.AddSynced(3)
	m.AddSyncFailed(0)
	m.IncDecryptFailure()
	m.IncSaltReset()
	m.ObserveRemote("delete", nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"ledger_remote_calls_total", map[string]string{"operation": "upsert", "outcome": "ok"}, 1},
		{"ledger_remote_calls_total", map[string]string{"operation": "upsert", "outcome": "failed"}, 2},
		{"ledger_local_fallbacks_total", map[string]string{"operation": "upsert"}, 1},
		{"ledger_sync_records_total", map[string]string{"result": "synced"}, 3},
		{"ledger_local_decrypt_failures_total", nil, 1},
		{"ledger_local_salt_resets_total", nil, 1},
		{"ledger_remote_calls_total", map[string]string{"operation": "delete", "outcome": "ok"}, 1},
	}
	for _, check := range checks {
		got, err := fetchCounterValue(mfs, check.name, check.labels)
		if err != nil {
			t.Fatalf("fetch %s: %v", check.name, err)
		}
		if got != check.want {
			t.Fatalf("%s%v: expected %f, got %f", check.name, check.labels, check.want, got)
		}
	}
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var m *LedgerMetrics
	m.ObserveRemote("read", nil)
	m.IncFallback("read")
	m.AddSynced(1)
	m.AddSyncFailed(1)
	m.IncDecryptFailure()
	m.IncSaltReset()

	NewLedgerMetrics(nil).IncDecryptFailure()
	NewLedgerMetrics(nil).IncSaltReset()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue(), nil
			}
		}
		return 0, fmt.Errorf("counter %q missing labels %v", name, labels)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}

func matchesLabels(pairs []*dto.LabelPair, labels map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if want, ok := labels[pair.GetName()]; ok {
			if want != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}
